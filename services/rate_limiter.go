package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

// AttemptState is the per-key limiter state. Zero Attempts with a zero
// LockedUntil is Clear; a non-zero LockedUntil is Locked.
type AttemptState struct {
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"last_attempt"`
	LockedUntil time.Time `json:"locked_until"`
}

// Locked reports whether the state carries a lock, expired or not
func (s AttemptState) Locked() bool {
	return !s.LockedUntil.IsZero()
}

// AttemptStore persists limiter state. Update must apply fn atomically
// with respect to other updates of the same key.
type AttemptStore interface {
	Get(ctx context.Context, key string) (AttemptState, bool, error)
	Update(ctx context.Context, key string, fn func(cur AttemptState, exists bool) AttemptState) error
	Delete(ctx context.Context, key string) error
}

// RateLimiter throttles repeated authentication attempts per identity key
type RateLimiter struct {
	Store           AttemptStore
	MaxAttempts     int
	LockoutDuration time.Duration
	Now             func() time.Time
}

func NewRateLimiter(store AttemptStore, maxAttempts int, lockout time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockoutDuration
	}
	return &RateLimiter{Store: store, MaxAttempts: maxAttempts, LockoutDuration: lockout, Now: time.Now}
}

// CheckRateLimit fails with a RateLimited error while key is locked.
// Expired locks and stale attempt counts are cleared on the way.
func (l *RateLimiter) CheckRateLimit(ctx context.Context, key string) error {
	key = NormalizeEmail(key)
	state, ok, err := l.Store.Get(ctx, key)
	if err != nil {
		log.Printf("❌ [RATE_LIMIT] Failed to read state for %s: %v", key, err)
		return transientError("read rate limit", err)
	}
	if !ok {
		return nil
	}

	now := l.Now()
	if state.Locked() && now.Before(state.LockedUntil) {
		return rateLimited(state.LockedUntil.Sub(now))
	}
	if l.expired(state, now) {
		if err := l.Store.Delete(ctx, key); err != nil {
			log.Printf("⚠️ [RATE_LIMIT] Failed to clear stale state for %s: %v", key, err)
		}
	}
	return nil
}

// RecordAttempt clears the key on success. A failure adds one attempt and
// locks the key once MaxAttempts is reached.
func (l *RateLimiter) RecordAttempt(ctx context.Context, key string, success bool) error {
	key = NormalizeEmail(key)
	if success {
		if err := l.Store.Delete(ctx, key); err != nil {
			return transientError("clear rate limit", err)
		}
		return nil
	}

	now := l.Now()
	var locked bool
	err := l.Store.Update(ctx, key, func(cur AttemptState, exists bool) AttemptState {
		if !exists || l.expired(cur, now) {
			cur = AttemptState{}
		}
		cur.Attempts++
		cur.LastAttempt = now
		if cur.Attempts >= l.MaxAttempts && !cur.Locked() {
			cur.LockedUntil = now.Add(l.LockoutDuration)
			locked = true
		}
		return cur
	})
	if err != nil {
		log.Printf("❌ [RATE_LIMIT] Failed to record attempt for %s: %v", key, err)
		return transientError("record attempt", err)
	}
	if locked {
		log.Printf("🔒 [RATE_LIMIT] %s locked for %s", key, l.LockoutDuration)
	}
	return nil
}

// expired reports whether state no longer constrains the key
func (l *RateLimiter) expired(state AttemptState, now time.Time) bool {
	if state.Locked() {
		return !now.Before(state.LockedUntil)
	}
	return now.Sub(state.LastAttempt) >= l.LockoutDuration
}

// MemoryAttemptStore keeps state in process memory. State is lost on
// restart and not shared between instances.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]AttemptState
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{entries: make(map[string]AttemptState)}
}

func (m *MemoryAttemptStore) Get(_ context.Context, key string) (AttemptState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.entries[key]
	return st, ok, nil
}

func (m *MemoryAttemptStore) Update(_ context.Context, key string, fn func(AttemptState, bool) AttemptState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[key]
	m.entries[key] = fn(cur, ok)
	return nil
}

func (m *MemoryAttemptStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

const (
	rateLimitPrefix = "ratelimit:auth:"
	maxWatchRetries = 10
)

// RedisAttemptStore shares limiter state between instances. Keys expire
// after the lockout duration so abandoned entries clean themselves up.
type RedisAttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptStore(client *redis.Client, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{client: client, ttl: ttl}
}

func (r *RedisAttemptStore) Get(ctx context.Context, key string) (AttemptState, bool, error) {
	return decodeAttempt(r.client.Get(ctx, rateLimitPrefix+key))
}

func (r *RedisAttemptStore) Update(ctx context.Context, key string, fn func(AttemptState, bool) AttemptState) error {
	k := rateLimitPrefix + key
	txf := func(tx *redis.Tx) error {
		cur, ok, err := decodeAttempt(tx.Get(ctx, k))
		if err != nil {
			return err
		}
		data, err := json.Marshal(fn(cur, ok))
		if err != nil {
			return fmt.Errorf("encode attempt state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention", k)
}

func (r *RedisAttemptStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, rateLimitPrefix+key).Err()
}

func decodeAttempt(cmd *redis.StringCmd) (AttemptState, bool, error) {
	var st AttemptState
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, false, fmt.Errorf("decode attempt state: %w", err)
	}
	return st, true, nil
}
