package services

import (
	"context"
	"testing"
	"time"

	"game-prereg-system/database"
	"game-prereg-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTiers(t *testing.T) {
	tiers := database.DefaultRewardTiers()

	tests := []struct {
		count   int64
		current string
		next    string
	}{
		{count: 0, current: "", next: "scout"},
		{count: 1, current: "scout", next: "captain"},
		{count: 2, current: "scout", next: "captain"},
		{count: 3, current: "captain", next: "commander"},
		{count: 9, current: "commander", next: "warlord"},
		{count: 10, current: "warlord", next: "emperor"},
		{count: 500, current: "emperor", next: ""},
	}
	for _, tt := range tests {
		current, next := ResolveTiers(tiers, tt.count)
		if tt.current == "" {
			assert.Nil(t, current, "count %d", tt.count)
		} else {
			require.NotNil(t, current, "count %d", tt.count)
			assert.Equal(t, tt.current, current.Code, "count %d", tt.count)
		}
		if tt.next == "" {
			assert.Nil(t, next, "count %d", tt.count)
		} else {
			require.NotNil(t, next, "count %d", tt.count)
			assert.Equal(t, tt.next, next.Code, "count %d", tt.count)
		}
	}
}

func TestResolveTiersIsMonotonic(t *testing.T) {
	tiers := database.DefaultRewardTiers()
	prevMin := int64(-1)
	for count := int64(0); count <= 50; count++ {
		current, _ := ResolveTiers(tiers, count)
		floor := int64(-1)
		if current != nil {
			floor = current.MinReferrals
		}
		assert.GreaterOrEqual(t, floor, prevMin, "count %d", count)
		prevMin = floor
	}
}

func TestResolveTiersOverlapPrefersLaterTier(t *testing.T) {
	hi := int64(10)
	tiers := []models.RewardTier{
		{Code: "wide", MinReferrals: 1, MaxReferrals: &hi, SortOrder: 1},
		{Code: "narrow", MinReferrals: 3, MaxReferrals: &hi, SortOrder: 2},
	}
	current, next := ResolveTiers(tiers, 4)
	require.NotNil(t, current)
	assert.Equal(t, "narrow", current.Code)
	assert.Nil(t, next)
}

func TestGetRewardInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice@x.com", "Alice", "")
	info, err := env.rewards.GetRewardInfo(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Nil(t, info.CurrentTier)
	require.NotNil(t, info.NextTier)
	assert.EqualValues(t, 1, info.ReferralsToNext)
	assert.Empty(t, info.UnlockedRewards)

	env.register(t, "bob@x.com", "Bob", alice.ReferralCode)
	env.register(t, "carol@x.com", "Carol", alice.ReferralCode)

	info, err = env.rewards.GetRewardInfo(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.ReferralCount)
	require.NotNil(t, info.CurrentTier)
	assert.Equal(t, "scout", info.CurrentTier.Code)
	assert.Equal(t, "captain", info.NextTier.Code)
	assert.EqualValues(t, 1, info.ReferralsToNext)
	assert.Equal(t, info.CurrentTier.Rewards, info.UnlockedRewards)
	assert.Len(t, info.Claims, 1)

	_, err = env.rewards.GetRewardInfo(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestClaimRewardIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice@x.com", "Alice", "")
	env.register(t, "bob@x.com", "Bob", alice.ReferralCode)
	scout, err := env.rewards.GetTierByCode(ctx, "Scout")
	require.NoError(t, err)

	first, err := env.rewards.ClaimReward(ctx, alice.User.ID, scout.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyClaimed)
	assert.False(t, first.ClaimedAt.IsZero())

	env.rewards.Now = func() time.Time { return time.Now().Add(time.Hour) }
	second, err := env.rewards.ClaimReward(ctx, alice.User.ID, scout.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyClaimed)
	assert.True(t, first.ClaimedAt.Equal(second.ClaimedAt))

	var row models.UserReward
	require.NoError(t, env.db.Where("user_id = ? AND tier_id = ?", alice.User.ID, scout.ID).First(&row).Error)
	assert.True(t, row.IsClaimed)
}

func TestClaimRewardRejectsLockedAndUnknownTiers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice@x.com", "Alice", "")
	env.register(t, "bob@x.com", "Bob", alice.ReferralCode)

	captain, err := env.rewards.GetTierByCode(ctx, "captain")
	require.NoError(t, err)
	_, err = env.rewards.ClaimReward(ctx, alice.User.ID, captain.ID)
	assert.True(t, IsKind(err, KindNotEligible))
	assert.ErrorIs(t, err, ErrRewardNotUnlocked)

	_, err = env.rewards.ClaimReward(ctx, alice.User.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrTierNotFound)

	_, err = env.rewards.GetTierByCode(ctx, "no-such-tier")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSyncUserRewardsIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	u := insertUser(t, env.db, "x@x.com", "xx", "XXXXXXXX")

	require.NoError(t, env.rewards.SyncUserRewards(env.db, u.ID, 5))
	require.NoError(t, env.rewards.SyncUserRewards(env.db, u.ID, 5))

	var count int64
	require.NoError(t, env.db.Model(&models.UserReward{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count) // scout, captain, commander
}
