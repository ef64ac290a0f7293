package models

import "time"

// ReferralLink records that ReferrerID referred ReferredUserID. The unique
// index on ReferredUserID enforces that a user can be referred at most once;
// Credited transitions false to true exactly once when the referrer is paid.
type ReferralLink struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReferrerID     uint       `gorm:"index;not null" json:"referrer_id"`
	ReferredUserID uint       `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	CodeUsed       string     `gorm:"size:16;not null" json:"code_used"`
	Credited       bool       `gorm:"default:false" json:"credited"`
	CreditedAt     *time.Time `json:"credited_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
