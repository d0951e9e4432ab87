package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		require.True(t, IsValidReferralCode(code), "bad code %q", code)
		seen[code] = true
	}
	// 36^8 codes; a repeat in 1000 draws would point at a broken source
	assert.Len(t, seen, 1000)
}

func TestIsValidReferralCode(t *testing.T) {
	assert.True(t, IsValidReferralCode("AB12CD34"))
	assert.False(t, IsValidReferralCode("ab12cd34"))
	assert.False(t, IsValidReferralCode("AB12CD3"))
	assert.False(t, IsValidReferralCode("AB12CD345"))
	assert.False(t, IsValidReferralCode("AB12-D34"))
	assert.True(t, IsValidReferralCode(NormalizeReferralCode(" ab12cd34\n")))
}
