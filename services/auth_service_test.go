package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerStub struct {
	mu       sync.Mutex
	status   int
	requests []map[string]any
	redirect []string
}

func (p *providerStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		p.mu.Lock()
		p.requests = append(p.requests, body)
		p.redirect = append(p.redirect, r.URL.Query().Get("redirect_to"))
		status := p.status
		p.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error_code":"otp_disabled","msg":"Signups not allowed for otp"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}
}

func (p *providerStub) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func newTestAuth(t *testing.T) (*AuthService, *providerStub, *testEnv) {
	env := newTestEnv(t)
	stub := &providerStub{}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	limiter, _ := newTestLimiter(NewMemoryAttemptStore())
	auth := NewAuthService(env.identity, limiter, NewAuthProviderClient(srv.URL+"/", "test-key"), "http://localhost:5173/empire")
	return auth, stub, env
}

func TestRequestMagicLinkSendsForRegisteredEmail(t *testing.T) {
	auth, stub, env := newTestAuth(t)
	insertUser(t, env.db, "alice@x.com", "Alice", "AAAAAAAA")

	require.NoError(t, auth.RequestMagicLink(context.Background(), " Alice@X.com "))
	require.Equal(t, 1, stub.calls())
	assert.Equal(t, "alice@x.com", stub.requests[0]["email"])
	assert.Equal(t, "http://localhost:5173/empire", stub.redirect[0])
}

func TestRequestMagicLinkRejectsUnregisteredEmail(t *testing.T) {
	auth, stub, _ := newTestAuth(t)

	err := auth.RequestMagicLink(context.Background(), "ghost@x.com")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, de.Kind)
	assert.Equal(t, CodeEmailNotRegistered, de.Code)
	assert.Zero(t, stub.calls())
}

func TestRequestMagicLinkLocksAfterRepeatedFailures(t *testing.T) {
	auth, stub, _ := newTestAuth(t)
	ctx := context.Background()

	for i := 0; i < DefaultMaxAttempts; i++ {
		err := auth.RequestMagicLink(ctx, "ghost@x.com")
		require.True(t, IsKind(err, KindNotFound), "attempt %d", i+1)
	}

	err := auth.RequestMagicLink(ctx, "ghost@x.com")
	assert.True(t, IsKind(err, KindRateLimited))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Zero(t, stub.calls())

	// a rate-limited attempt is not counted again
	st, _, _ := auth.Limiter.Store.Get(ctx, "ghost@x.com")
	assert.Equal(t, DefaultMaxAttempts, st.Attempts)
}

func TestRequestMagicLinkInvalidEmailCounts(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	err := auth.RequestMagicLink(ctx, "nope")
	assert.True(t, IsKind(err, KindValidation))
	st, ok, _ := auth.Limiter.Store.Get(ctx, "nope")
	require.True(t, ok)
	assert.Equal(t, 1, st.Attempts)
}

func TestRequestMagicLinkProviderRejection(t *testing.T) {
	auth, stub, env := newTestAuth(t)
	insertUser(t, env.db, "alice@x.com", "Alice", "AAAAAAAA")
	stub.status = http.StatusUnprocessableEntity

	err := auth.RequestMagicLink(context.Background(), "alice@x.com")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, de.Kind)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "otp_disabled", perr.Code)
	assert.Equal(t, "Signups not allowed for otp", perr.Message)
}

func TestParseAuthCallback(t *testing.T) {
	tokens, err := ParseAuthCallback("http://localhost:5173/empire#access_token=abc&refresh_token=def&expires_in=3600&token_type=bearer")
	require.NoError(t, err)
	assert.Equal(t, &SessionTokens{AccessToken: "abc", RefreshToken: "def", TokenType: "bearer", ExpiresIn: 3600}, tokens)

	tokens, err = ParseAuthCallback("#access_token=abc&refresh_token=def")
	require.NoError(t, err)
	assert.Equal(t, "def", tokens.RefreshToken)

	tokens, err = ParseAuthCallback("access_token=abc&refresh_token=def")
	require.NoError(t, err)
	assert.Equal(t, "abc", tokens.AccessToken)
}

func TestParseAuthCallbackFailures(t *testing.T) {
	_, err := ParseAuthCallback("http://localhost:5173/empire#access_token=abc")
	assert.True(t, IsKind(err, KindValidation))

	_, err = ParseAuthCallback("http://localhost:5173/empire")
	assert.True(t, IsKind(err, KindValidation))

	_, err = ParseAuthCallback("http://localhost:5173/empire#error=access_denied&error_description=Email+link+is+invalid+or+has+expired")
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, de.Kind)
	assert.Contains(t, de.Error(), "Email link is invalid or has expired")
}
