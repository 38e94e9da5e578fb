package models

// DailyPrediction is the daily mystical reading issued to a user, one per
// (user, day). Created lazily on the first fetch of the day; the verification
// code is immutable once issued and Verified flips false→true exactly once.
type DailyPrediction struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex:idx_prediction_user_day;not null" json:"user_id"`
	Day    string `gorm:"uniqueIndex:idx_prediction_user_day;type:varchar(10);not null" json:"day"` // YYYY-MM-DD, server-local

	Text         string `gorm:"type:text;not null" json:"text"`
	ImageURL     string `gorm:"type:text" json:"image_url"`
	Code         string `gorm:"type:varchar(8);not null" json:"code"`
	MysticalHash string `gorm:"type:varchar(16)" json:"mystical_hash"` // opaque anti-tamper token, not a security boundary

	Verified bool `gorm:"default:false" json:"verified"`

	Timestamps
}
