package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
)

// MagicLinkSender delivers a sign-in link to an email address
type MagicLinkSender interface {
	SendMagicLink(ctx context.Context, email, redirectURL string) error
}

// SessionTokens are read from the fragment of the magic-link redirect
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

type AuthService struct {
	Identity    *IdentityService
	Limiter     *RateLimiter
	Provider    MagicLinkSender
	RedirectURL string
}

func NewAuthService(identity *IdentityService, limiter *RateLimiter, provider MagicLinkSender, redirectURL string) *AuthService {
	return &AuthService{Identity: identity, Limiter: limiter, Provider: provider, RedirectURL: redirectURL}
}

// RequestMagicLink sends a sign-in link to a pre-registered email. Every
// failure except the rate limit itself counts against the key; a success
// clears it.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.Limiter.CheckRateLimit(ctx, email); err != nil {
		if IsKind(err, KindRateLimited) {
			log.Printf("🚫 [AUTH] Rate limited: %s", email)
		}
		return err
	}

	err := s.requestMagicLink(ctx, email)
	if rerr := s.Limiter.RecordAttempt(ctx, email, err == nil); rerr != nil {
		log.Printf("⚠️ [AUTH] Could not record attempt for %s: %v", email, rerr)
	}
	if err != nil {
		return err
	}
	log.Printf("✅ [AUTH] Magic link sent to %s", email)
	return nil
}

func (s *AuthService) requestMagicLink(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	if _, err := s.Identity.GetUserByEmail(ctx, email); err != nil {
		if IsKind(err, KindNotFound) {
			return &DomainError{Kind: KindNotFound, Code: CodeEmailNotRegistered, Field: "email", Err: ErrUserNotFound}
		}
		return err
	}

	if err := s.Provider.SendMagicLink(ctx, email, s.RedirectURL); err != nil {
		log.Printf("❌ [AUTH] Provider rejected magic link for %s: %v", email, err)
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Status < 500 {
			return &DomainError{Kind: KindAuth, Code: CodeAuthProviderError, Err: err}
		}
		return &DomainError{Kind: KindTransient, Code: CodeAuthProviderError, Err: err}
	}
	return nil
}

// ParseAuthCallback extracts session tokens from a redirect URL, a bare
// fragment ("#access_token=...") or a raw fragment body.
func ParseAuthCallback(raw string) (*SessionTokens, error) {
	raw = strings.TrimSpace(raw)
	fragment := raw
	if i := strings.Index(raw, "#"); i >= 0 {
		fragment = raw[i+1:]
	} else if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		fragment = u.RawQuery
	}

	values, err := url.ParseQuery(fragment)
	if err != nil {
		return nil, &DomainError{Kind: KindValidation, Code: CodeInvalidAuthCallback, Field: "url", Err: fmt.Errorf("parse callback: %w", err)}
	}

	if desc := values.Get("error_description"); desc != "" || values.Get("error") != "" {
		if desc == "" {
			desc = values.Get("error")
		}
		return nil, &DomainError{Kind: KindAuth, Code: CodeInvalidAuthCallback, Err: errors.New(desc)}
	}

	tokens := &SessionTokens{
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
		TokenType:    values.Get("token_type"),
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, &DomainError{Kind: KindValidation, Code: CodeInvalidAuthCallback, Field: "url", Err: errors.New("missing session tokens")}
	}
	if v := values.Get("expires_in"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			tokens.ExpiresIn = n
		}
	}
	return tokens, nil
}
