package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func increment(t *testing.T, env *testEnv, now time.Time) int64 {
	t.Helper()
	var total int64
	require.NoError(t, env.db.Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = env.stats.Increment(tx, now)
		return err
	}))
	return total
}

func TestStatsSnapshotEmpty(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.stats.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.TotalRegistrations)
	assert.Zero(t, snap.RegistrationsToday)
}

func TestStatsIncrementAndRollover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	day1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	assert.EqualValues(t, 1, increment(t, env, day1))
	assert.EqualValues(t, 2, increment(t, env, day1.Add(time.Hour)))

	require.NoError(t, env.stats.Rollover(ctx, day2))
	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-02", snap.Date)
	assert.EqualValues(t, 2, snap.TotalRegistrations)
	assert.Zero(t, snap.RegistrationsToday)

	// rollover twice is harmless
	require.NoError(t, env.stats.Rollover(ctx, day2))

	assert.EqualValues(t, 3, increment(t, env, day2))
	snap, err = env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.RegistrationsToday)

	prev, err := env.stats.GetDay(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.EqualValues(t, 2, prev.RegistrationsToday)
}

func TestStatsIncrementWithoutRollover(t *testing.T) {
	env := newTestEnv(t)
	day1 := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)

	increment(t, env, day1)
	// first registration of a new day opens the row itself
	assert.EqualValues(t, 2, increment(t, env, day1.Add(2*time.Hour)))
}

func TestStatsIncrementStampedBeforeRollover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	day1 := time.Date(2026, 1, 1, 23, 59, 59, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	increment(t, env, day1)
	require.NoError(t, env.stats.Rollover(ctx, day2))

	// stamped on day 1, committed after day 2 was opened
	assert.EqualValues(t, 2, increment(t, env, day1.Add(500*time.Millisecond)))

	snap, err := env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", snap.Date)
	assert.EqualValues(t, 2, snap.TotalRegistrations)
	assert.EqualValues(t, 1, snap.RegistrationsToday)

	// the next day's carry-forward includes it too
	require.NoError(t, env.stats.Rollover(ctx, day2.Add(24*time.Hour)))
	snap, err = env.stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.TotalRegistrations)
}

func TestStatsDayUsesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	stats := NewStatsService(nil, nil, seoul)
	// 16:00 UTC is already the next day in Seoul
	assert.Equal(t, "2025-03-02", stats.day(time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC)))
}
