package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a Flowva account. Passwords are stored as bcrypt hashes only.
// TotalPoints is a cached balance; the point_events table is the source of
// truth and the cache is updated in the same transaction as every event.
type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Username        string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email           string         `gorm:"size:255" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	ReferralCode    string         `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	TotalPoints     int            `gorm:"default:0" json:"total_points"`
	CurrentStreak   int            `gorm:"default:0" json:"current_streak"`
	LastClaimedDate string         `gorm:"size:10" json:"last_claimed_date"` // UTC calendar date YYYY-MM-DD, empty = never claimed
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
