package models

import "time"

// DailyClaim is a per-user, per-source, per-day uniqueness marker. The
// composite unique index is the durable guard against double-crediting a
// daily action, surviving reloads and concurrent sessions. ClaimDate is a UTC
// calendar date in YYYY-MM-DD form. The streak_spin source reuses this table
// as the once-per-unlock guard for the weekly bonus wheel.
type DailyClaim struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	UserID    uint        `gorm:"index:idx_claim_user_source_date,unique;not null" json:"user_id"`
	Source    PointSource `gorm:"size:32;index:idx_claim_user_source_date,unique;not null" json:"source"`
	ClaimDate string      `gorm:"size:10;index:idx_claim_user_source_date,unique;not null" json:"claim_date"`
	CreatedAt time.Time   `json:"created_at"`
}
