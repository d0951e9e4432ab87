package models

import "time"

// Referral levels. Only two hops are tracked for rewards.
const (
	ReferralLevelDirect   = 1
	ReferralLevelIndirect = 2
)

// Referral is one edge of the invitation graph (append-only).
// A user is the referee of at most one edge per level.
type Referral struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string    `gorm:"type:uuid;index;not null" json:"referrer_id"`
	RefereeID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_referrals_referee_level" json:"referee_id"`
	Level      int       `gorm:"not null;uniqueIndex:idx_referrals_referee_level" json:"level"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
