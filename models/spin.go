package models

// SpinRecord marks a consumed fortune spin, one per (user, day). The
// existence of the row for today's date is itself the daily gate — no
// separate "spun" flag is kept anywhere else.
type SpinRecord struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex:idx_spin_user_day;not null" json:"user_id"`
	Day    string `gorm:"uniqueIndex:idx_spin_user_day;type:varchar(10);not null" json:"day"`

	Points int64 `json:"points"`

	Timestamps
}
