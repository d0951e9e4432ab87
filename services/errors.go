package services

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrorKind classifies domain failures at the service boundary
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindDuplicate   ErrorKind = "duplicate"
	KindReferential ErrorKind = "referential"
	KindNotFound    ErrorKind = "not_found"
	KindNotEligible ErrorKind = "not_eligible"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth"
	KindTransient   ErrorKind = "transient"
)

// Error codes surfaced to clients
const (
	CodeRequiredName          = "REQUIRED_NAME"
	CodeInvalidName           = "INVALID_NAME"
	CodeRequiredEmail         = "REQUIRED_EMAIL"
	CodeInvalidEmail          = "INVALID_EMAIL"
	CodeRequiredNickname      = "REQUIRED_NICKNAME"
	CodeInvalidNickname       = "INVALID_NICKNAME"
	CodeInvalidPhone          = "INVALID_PHONE"
	CodeInvalidLanguage       = "INVALID_LANGUAGE"
	CodeInvalidReferralCode   = "INVALID_REFERRAL_CODE"
	CodeReferralCodeNotFound  = "REFERRAL_CODE_NOT_FOUND"
	CodeSelfReferral          = "SELF_REFERRAL"
	CodeEmailAlreadyExists    = "EMAIL_ALREADY_EXISTS"
	CodeNicknameAlreadyExists = "NICKNAME_ALREADY_EXISTS"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeEmailNotRegistered    = "EMAIL_NOT_REGISTERED"
	CodeTierNotFound          = "TIER_NOT_FOUND"
	CodeRewardNotUnlocked     = "REWARD_NOT_UNLOCKED"
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeInvalidAuthCallback   = "INVALID_AUTH_CALLBACK"
	CodeAuthProviderError     = "AUTH_PROVIDER_ERROR"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeRegistrationFailed    = "REGISTRATION_FAILED"
	CodeUnknown               = "UNKNOWN_ERROR"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrNicknameTaken       = errors.New("nickname already in use")
	ErrInvalidReferralCode = errors.New("referral code does not match any user")
	ErrSelfReferral        = errors.New("user cannot refer themselves")
	ErrUserNotFound        = errors.New("user not found")
	ErrTierNotFound        = errors.New("reward tier not found")
	ErrRewardNotUnlocked   = errors.New("reward tier not unlocked")
	ErrRateLimited         = errors.New("too many attempts")
	ErrCodeSpaceExhausted  = errors.New("could not issue a unique referral code")
)

// DomainError carries a kind, a client code and the underlying cause
type DomainError struct {
	Kind       ErrorKind
	Code       string
	Field      string
	RetryAfter time.Duration
	Err        error
}

func (e *DomainError) Error() string {
	msg := string(e.Kind) + ": " + e.Code
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Err }

// RetryAfterMinutes rounds the remaining lockout up to whole minutes
func (e *DomainError) RetryAfterMinutes() int {
	return int(math.Ceil(e.RetryAfter.Minutes()))
}

// Retryable reports whether the caller may retry the same request unchanged
func (e *DomainError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimited
}

// AsDomainError extracts a *DomainError from err, if any
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err is a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == kind
}

func validationError(field, code string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Field: field, Err: fmt.Errorf("invalid %s", field)}
}

func duplicateEmail() *DomainError {
	return &DomainError{Kind: KindDuplicate, Code: CodeEmailAlreadyExists, Field: "email", Err: ErrEmailTaken}
}

func duplicateNickname() *DomainError {
	return &DomainError{Kind: KindDuplicate, Code: CodeNicknameAlreadyExists, Field: "nickname", Err: ErrNicknameTaken}
}

func notFound(code string, err error) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Err: err}
}

// transientError wraps a storage or network failure
func transientError(op string, err error) *DomainError {
	return &DomainError{Kind: KindTransient, Code: CodeDatabaseError, Err: fmt.Errorf("%s: %w", op, err)}
}

func rateLimited(remaining time.Duration) *DomainError {
	return &DomainError{Kind: KindRateLimited, Code: CodeRateLimitExceeded, RetryAfter: remaining, Err: ErrRateLimited}
}
