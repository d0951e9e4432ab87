package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(store AttemptStore) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(store, 5, 15*time.Minute)
	l.Now = clock.Now
	return l, clock
}

func failTimes(t *testing.T, l *RateLimiter, key string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, l.CheckRateLimit(context.Background(), key))
		require.NoError(t, l.RecordAttempt(context.Background(), key, false))
	}
}

func assertLockout(t *testing.T, store AttemptStore) {
	ctx := context.Background()
	l, clock := newTestLimiter(store)
	key := "lock-" + time.Now().Format("150405.000000") + "@x.com"

	failTimes(t, l, key, 5)

	err := l.CheckRateLimit(ctx, key)
	de, ok := AsDomainError(err)
	require.True(t, ok, "sixth attempt must be rejected")
	assert.Equal(t, KindRateLimited, de.Kind)
	assert.Equal(t, 15, de.RetryAfterMinutes())

	clock.Advance(14*time.Minute + 30*time.Second)
	err = l.CheckRateLimit(ctx, key)
	de, ok = AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, 1, de.RetryAfterMinutes())

	clock.Advance(30 * time.Second)
	require.NoError(t, l.CheckRateLimit(ctx, key))
	_, exists, err := store.Get(ctx, NormalizeEmail(key))
	require.NoError(t, err)
	assert.False(t, exists, "expired lock is cleared")

	require.NoError(t, l.RecordAttempt(ctx, key, false))
	st, _, err := store.Get(ctx, NormalizeEmail(key))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Attempts)
	assert.False(t, st.Locked())
}

func TestRateLimiterLocksAfterMaxFailures(t *testing.T) {
	assertLockout(t, NewMemoryAttemptStore())
}

func TestRateLimiterSuccessClears(t *testing.T) {
	store := NewMemoryAttemptStore()
	l, _ := newTestLimiter(store)
	ctx := context.Background()

	failTimes(t, l, "a@x.com", 4)
	require.NoError(t, l.RecordAttempt(ctx, "a@x.com", true))

	_, exists, _ := store.Get(ctx, "a@x.com")
	assert.False(t, exists)

	failTimes(t, l, "a@x.com", 4)
	assert.NoError(t, l.CheckRateLimit(ctx, "a@x.com"))
}

func TestRateLimiterForgetsStaleAttempts(t *testing.T) {
	store := NewMemoryAttemptStore()
	l, clock := newTestLimiter(store)
	ctx := context.Background()

	failTimes(t, l, "a@x.com", 4)
	clock.Advance(15 * time.Minute)

	// the old four no longer count toward the lock
	failTimes(t, l, "a@x.com", 4)
	assert.NoError(t, l.CheckRateLimit(ctx, "a@x.com"))
	st, _, _ := store.Get(ctx, "a@x.com")
	assert.Equal(t, 4, st.Attempts)
}

func TestRateLimiterNormalizesKeys(t *testing.T) {
	l, _ := newTestLimiter(NewMemoryAttemptStore())
	failTimes(t, l, "  Alice@X.com", 5)
	assert.True(t, IsKind(l.CheckRateLimit(context.Background(), "alice@x.com"), KindRateLimited))
}

func TestRedisAttemptStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	assertLockout(t, NewRedisAttemptStore(client, time.Hour))
}
