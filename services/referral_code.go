package services

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	ReferralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxCodeAttempts bounds generate+insert retries on a code collision
	MaxCodeAttempts = 5
)

var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// largest multiple of the alphabet size that fits in a byte; bytes at or
// above it are rejected so every symbol is equally likely
var referralCodeCutoff = byte(256 - 256%len(referralCodeAlphabet))

// GenerateReferralCode returns a random 8-character code over A-Z0-9.
// Uniqueness is not checked here; the users.referral_code index enforces it.
func GenerateReferralCode() (string, error) {
	code := make([]byte, 0, ReferralCodeLength)
	buf := make([]byte, ReferralCodeLength*2)
	for len(code) < ReferralCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= referralCodeCutoff {
				continue
			}
			code = append(code, referralCodeAlphabet[int(b)%len(referralCodeAlphabet)])
			if len(code) == ReferralCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// IsValidReferralCode reports whether code is exactly 8 uppercase letters or digits
func IsValidReferralCode(code string) bool {
	return referralCodePattern.MatchString(code)
}

// NormalizeReferralCode trims and uppercases user-supplied input
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
