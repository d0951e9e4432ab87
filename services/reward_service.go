// services/reward_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"game-prereg-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RewardService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db, Now: time.Now}
}

// RewardInfo is a user's standing on the reward ladder
type RewardInfo struct {
	CurrentTier     *models.RewardTier  `json:"current_tier"`
	NextTier        *models.RewardTier  `json:"next_tier"`
	ReferralCount   int64               `json:"referral_count"`
	ReferralsToNext int64               `json:"referrals_to_next"`
	UnlockedRewards []models.RewardItem `json:"unlocked_rewards"`
	Claims          []models.UserReward `json:"claims"`
}

// ClaimResult reports the claim state after a claim request
type ClaimResult struct {
	TierID         string    `json:"tier_id"`
	ClaimedAt      time.Time `json:"claimed_at"`
	AlreadyClaimed bool      `json:"already_claimed"`
}

// ResolveTiers finds the tier whose range holds count and the next tier up.
// If ranges overlap, the qualifying tier latest in sort order wins.
func ResolveTiers(tiers []models.RewardTier, count int64) (current, next *models.RewardTier) {
	sorted := make([]models.RewardTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })

	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Contains(count) {
			current = &sorted[i]
			break
		}
	}
	for i := range sorted {
		if sorted[i].MinReferrals > count {
			next = &sorted[i]
			break
		}
	}
	return current, next
}

// ListTiers returns active tiers in ladder order
func (s *RewardService) ListTiers(ctx context.Context) ([]models.RewardTier, error) {
	var tiers []models.RewardTier
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC").Find(&tiers).Error; err != nil {
		log.Printf("❌ [REWARD] Failed to list tiers: %v", err)
		return nil, transientError("list tiers", err)
	}
	return tiers, nil
}

// GetTierByCode looks a tier up by its slug
func (s *RewardService) GetTierByCode(ctx context.Context, code string) (*models.RewardTier, error) {
	var tier models.RewardTier
	err := s.DB.WithContext(ctx).Where("code = ? AND is_active = ?", slug.Make(code), true).First(&tier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(CodeTierNotFound, ErrTierNotFound)
	}
	if err != nil {
		return nil, transientError("get tier", err)
	}
	return &tier, nil
}

// GetRewardInfo resolves the user's current and next tier from the cached
// direct-referral count. Unlocked rewards are the current tier's list only.
func (s *RewardService) GetRewardInfo(ctx context.Context, userID string) (*RewardInfo, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	err := db.Select("id", "referral_count_cache").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(CodeUserNotFound, ErrUserNotFound)
	}
	if err != nil {
		return nil, transientError("load user", err)
	}

	tiers, err := s.ListTiers(ctx)
	if err != nil {
		return nil, err
	}

	info := &RewardInfo{
		ReferralCount:   user.ReferralCountCache,
		UnlockedRewards: []models.RewardItem{},
		Claims:          []models.UserReward{},
	}
	info.CurrentTier, info.NextTier = ResolveTiers(tiers, user.ReferralCountCache)
	if info.CurrentTier != nil {
		info.UnlockedRewards = info.CurrentTier.Rewards
	}
	if info.NextTier != nil {
		info.ReferralsToNext = info.NextTier.MinReferrals - user.ReferralCountCache
	}

	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&info.Claims).Error; err != nil {
		return nil, transientError("load claims", err)
	}
	return info, nil
}

// SyncUserRewards makes sure a claim row exists for every active tier the
// count has reached. Safe to call repeatedly.
func (s *RewardService) SyncUserRewards(tx *gorm.DB, userID string, count int64) error {
	var tiers []models.RewardTier
	if err := tx.Where("is_active = ? AND min_referrals <= ?", true, count).Find(&tiers).Error; err != nil {
		return fmt.Errorf("load unlocked tiers: %w", err)
	}
	if len(tiers) == 0 {
		return nil
	}

	rows := make([]models.UserReward, 0, len(tiers))
	for _, t := range tiers {
		rows = append(rows, models.UserReward{
			ID:     uuid.NewString(),
			UserID: userID,
			TierID: t.ID,
		})
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tier_id"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("create user rewards: %w", err)
	}
	return nil
}

// ClaimReward marks a tier's reward claimed. A repeated claim succeeds with
// AlreadyClaimed set and the original ClaimedAt.
func (s *RewardService) ClaimReward(ctx context.Context, userID, tierID string) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tier models.RewardTier
		if err := tx.Where("id = ? AND is_active = ?", tierID, true).First(&tier).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(CodeTierNotFound, ErrTierNotFound)
			}
			return transientError("load tier", err)
		}

		var user models.User
		if err := tx.Select("id", "referral_count_cache").Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(CodeUserNotFound, ErrUserNotFound)
			}
			return transientError("load user", err)
		}
		if user.ReferralCountCache < tier.MinReferrals {
			return &DomainError{Kind: KindNotEligible, Code: CodeRewardNotUnlocked, Err: ErrRewardNotUnlocked}
		}

		if err := s.SyncUserRewards(tx, userID, user.ReferralCountCache); err != nil {
			return transientError("sync rewards", err)
		}

		res := tx.Model(&models.UserReward{}).
			Where("user_id = ? AND tier_id = ? AND is_claimed = ?", userID, tierID, false).
			Updates(map[string]any{"is_claimed": true, "claimed_at": s.Now()})
		if res.Error != nil {
			return transientError("claim reward", res.Error)
		}

		var row models.UserReward
		if err := tx.Where("user_id = ? AND tier_id = ?", userID, tierID).First(&row).Error; err != nil {
			return transientError("reload reward", err)
		}
		result = &ClaimResult{TierID: tierID, AlreadyClaimed: res.RowsAffected == 0}
		if row.ClaimedAt != nil {
			result.ClaimedAt = *row.ClaimedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyClaimed {
		log.Printf("ℹ️ [REWARD] Tier %s already claimed by user %s", tierID, userID)
	} else {
		log.Printf("🎁 [REWARD] User %s claimed tier %s", userID, tierID)
	}
	return result, nil
}
