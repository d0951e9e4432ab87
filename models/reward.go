package models

import "time"

// RewardType indicates what kind of in-game item a reward grants
type RewardType string

const (
	RewardTypeWeapon   RewardType = "weapon"
	RewardTypeCurrency RewardType = "currency"
	RewardTypeSkin     RewardType = "skin"
	RewardTypeMount    RewardType = "mount"
	RewardTypeTitle    RewardType = "title"
)

// RewardRarity grades an item
type RewardRarity string

const (
	RarityCommon    RewardRarity = "common"
	RarityUncommon  RewardRarity = "uncommon"
	RarityRare      RewardRarity = "rare"
	RarityEpic      RewardRarity = "epic"
	RarityLegendary RewardRarity = "legendary"
	RarityMythic    RewardRarity = "mythic"
	RarityDivine    RewardRarity = "divine"
	RarityUnique    RewardRarity = "unique"
)

// RewardItem is a single entry of a tier's reward list
type RewardItem struct {
	Type   RewardType   `json:"type"`
	Name   string       `json:"name"`
	Rarity RewardRarity `json:"rarity,omitempty"`
	Amount int64        `json:"amount,omitempty"`
}

// RewardTier is a reward bracket over direct-referral count.
// The range is half-open: [MinReferrals, MaxReferrals); nil Max is unbounded.
type RewardTier struct {
	ID               string       `gorm:"primaryKey;type:uuid" json:"id"`
	TierName         string       `gorm:"not null" json:"tier_name"`
	Code             string       `gorm:"uniqueIndex;not null;size:64" json:"code"` // slug of TierName
	MinReferrals     int64        `gorm:"not null" json:"min_referrals"`
	MaxReferrals     *int64       `json:"max_referrals"`
	Rewards          []RewardItem `gorm:"type:jsonb;serializer:json" json:"rewards"`
	UnlockedEpisodes []int        `gorm:"type:jsonb;serializer:json" json:"unlocked_episodes"`
	SortOrder        int          `gorm:"not null;index" json:"sort_order"`
	IsActive         bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// Contains reports whether count falls inside the tier's range
func (t *RewardTier) Contains(count int64) bool {
	if count < t.MinReferrals {
		return false
	}
	return t.MaxReferrals == nil || count < *t.MaxReferrals
}

// UserReward is the claim record for a tier a user has unlocked
type UserReward struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_rewards_user_tier" json:"user_id"`
	TierID    string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_rewards_user_tier" json:"tier_id"`
	IsClaimed bool       `gorm:"not null;default:false" json:"is_claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
