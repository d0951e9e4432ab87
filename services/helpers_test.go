package services

import (
	"context"
	"testing"
	"time"

	"game-prereg-system/models"
	"game-prereg-system/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	feed         *LiveFeed
	identity     *IdentityService
	referrals    *ReferralService
	rewards      *RewardService
	stats        *StatsService
	registration *RegistrationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{db: db, feed: NewLiveFeed()}
	env.identity = NewIdentityService(db)
	env.referrals = NewReferralService(db)
	env.rewards = NewRewardService(db)
	env.stats = NewStatsService(db, env.feed, time.UTC)
	env.registration = NewRegistrationService(db, env.identity, env.referrals, env.rewards, env.stats)
	return env
}

func (e *testEnv) register(t *testing.T, email, nickname, referredBy string) *RegistrationResult {
	t.Helper()
	res, err := e.registration.CreateRegistration(context.Background(), RegistrationInput{
		Name:           nickname,
		Email:          email,
		Nickname:       nickname,
		ReferredByCode: referredBy,
	})
	require.NoError(t, err)
	return res
}

// insertUser writes a user row directly, bypassing registration
func insertUser(t *testing.T, db *gorm.DB, email, nickname, code string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Nickname:     nickname,
		Name:         nickname,
		Language:     models.LanguageKorean,
		ReferralCode: code,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// codeSequence returns the given codes in order, repeating the last one
func codeSequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}
