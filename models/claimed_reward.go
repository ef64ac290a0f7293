package models

import "time"

// ClaimedReward records a fulfilled redemption. Points are consumed when the
// claim row is written, not when delivery succeeds; Delivered tracks the
// best-effort fulfillment dispatch outcome for support follow-up.
type ClaimedReward struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	RewardID       string    `gorm:"size:64;index;not null" json:"reward_id"`
	RewardTitle    string    `gorm:"size:255;not null" json:"reward_title"`
	PointsSpent    int       `gorm:"not null" json:"points_spent"`
	RecipientEmail string    `gorm:"size:255;not null" json:"recipient_email"`
	RecipientName  string    `gorm:"size:128" json:"recipient_name"`
	Delivered      bool      `gorm:"default:false" json:"delivered"`
	CreatedAt      time.Time `json:"created_at"`
}
