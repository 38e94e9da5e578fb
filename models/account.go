package models

import (
	"time"

	"gorm.io/gorm"
)

// Account tracks balance and progression for each user (one row per Telegram user).
type Account struct {
	TelegramID      string `gorm:"primaryKey" json:"telegram_id"`
	Username        string `gorm:"index;not null" json:"username"`
	Handle          string `gorm:"index" json:"handle"` // URL-safe profile handle, slugified from username
	EVMAddress      string `gorm:"type:varchar(42)" json:"evm_address"`
	TwitterUsername string `json:"twitter_username"`

	// Core progression
	Points int64 `json:"points" gorm:"default:0"`
	XP     int64 `json:"xp" gorm:"default:0"`
	Level  int   `json:"level" gorm:"default:1"`

	// ReferrerID links to the referring account's TelegramID. Weak reference:
	// the referrer may have been removed upstream; reward cascades tolerate that.
	ReferrerID *string `gorm:"index" json:"referrer_id,omitempty"`

	// Daily action stamps (informational — the daily records are the gate)
	LastSpin       *time.Time `json:"last_spin,omitempty"`
	LastPrediction *time.Time `json:"last_prediction,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
