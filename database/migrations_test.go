package database_test

import (
	"testing"

	"game-prereg-system/database"
	"game-prereg-system/models"
	"game-prereg-system/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSeedsTiers(t *testing.T) {
	db := testutil.NewDB(t)

	var tiers []models.RewardTier
	require.NoError(t, db.Order("sort_order ASC").Find(&tiers).Error)
	require.Len(t, tiers, len(database.DefaultRewardTiers()))

	assert.Equal(t, "scout", tiers[0].Code)
	assert.NotEmpty(t, tiers[0].Rewards)
	assert.Equal(t, []int{1}, tiers[0].UnlockedEpisodes)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, database.Migrate(db))

	var count int64
	require.NoError(t, db.Model(&models.RewardTier{}).Count(&count).Error)
	assert.EqualValues(t, len(database.DefaultRewardTiers()), count)
}

func TestDefaultTiersPartitionCounts(t *testing.T) {
	tiers := database.DefaultRewardTiers()
	for i := 1; i < len(tiers); i++ {
		prev := tiers[i-1]
		require.NotNil(t, prev.MaxReferrals)
		assert.Equal(t, *prev.MaxReferrals, tiers[i].MinReferrals, "tier %s must start where %s ends", tiers[i].Code, prev.Code)
		assert.Greater(t, tiers[i].SortOrder, prev.SortOrder)
	}
	assert.Nil(t, tiers[len(tiers)-1].MaxReferrals)
}
