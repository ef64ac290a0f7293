package models

import "time"

// PointSource identifies what earned (or spent) the points.
type PointSource string

const (
	SourceDailyStreak PointSource = "daily_streak"
	SourceStreakSpin  PointSource = "streak_spin"
	SourceTryTool     PointSource = "try_tool"
	SourceReview      PointSource = "review"
	SourceShareStack  PointSource = "share_stack"
	SourceReferral    PointSource = "referral"
	SourceRedeem      PointSource = "redeem"
)

// PointEvent is one immutable entry in a user's point ledger. Rows are only
// ever inserted; the sum of Delta over a user's events must always equal the
// cached User.TotalPoints.
type PointEvent struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"index;not null" json:"user_id"`
	Source    PointSource `gorm:"size:32;index;not null" json:"source"`
	Delta     int         `gorm:"not null" json:"delta"`
	CreatedAt time.Time   `json:"created_at"`
}
