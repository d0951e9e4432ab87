package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUserExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insertUser(t, env.db, "alice@x.com", "Alice", "AAAAAAAA")
	insertUser(t, env.db, "bob@x.com", "Bob", "BBBBBBBB")

	res, err := env.identity.CheckUserExists(ctx, "ALICE@x.com", "Bob")
	require.NoError(t, err)
	assert.Equal(t, DuplicateCheckResult{EmailExists: true, NicknameExists: true}, res)
	assert.Equal(t, CodeEmailAlreadyExists, res.Err().(*DomainError).Code)

	res, err = env.identity.CheckUserExists(ctx, "new@x.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, DuplicateCheckResult{NicknameExists: true}, res)
	assert.ErrorIs(t, res.Err(), ErrNicknameTaken)

	res, err = env.identity.CheckUserExists(ctx, "new@x.com", "")
	require.NoError(t, err)
	assert.False(t, res.Any())
	assert.NoError(t, res.Err())
}

func TestGetUserByReferralCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := insertUser(t, env.db, "alice@x.com", "Alice", "AB12CD34")

	u, err := env.identity.GetUserByReferralCode(ctx, " ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = env.identity.GetUserByReferralCode(ctx, "ZZZZZZZZ")
	assert.True(t, IsKind(err, KindReferential))
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = env.identity.GetUserByReferralCode(ctx, "short")
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.identity.GetUserByID(ctx, "missing")
	assert.True(t, IsKind(err, KindNotFound))
}
