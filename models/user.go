package models

import "time"

// Language is the preferred UI language chosen at registration
type Language string

const (
	LanguageKorean   Language = "ko"
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
)

// IsValid reports whether l is one of the supported languages
func (l Language) IsValid() bool {
	switch l {
	case LanguageKorean, LanguageEnglish, LanguageJapanese:
		return true
	}
	return false
}

// User is a pre-registered player.
// Email and nickname are unique; the referral code is issued once at creation.
type User struct {
	ID       string   `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string   `gorm:"uniqueIndex;not null;size:255" json:"email"` // always lowercased
	Nickname string   `gorm:"uniqueIndex;not null;size:50" json:"nickname"`
	Name     string   `gorm:"not null;size:100" json:"name"`
	Phone    *string  `gorm:"size:20" json:"phone,omitempty"`
	Language Language `gorm:"size:2;not null;default:'ko'" json:"language"`

	ReferralCode     string  `gorm:"uniqueIndex;not null;size:8" json:"referral_code"`
	ReferredByCode   *string `gorm:"size:8" json:"referred_by_code,omitempty"`
	ReferredByUserID *string `gorm:"type:uuid;index" json:"referred_by_user_id,omitempty"` // weak ref, lookup only

	// Denormalized count of level-1 referrals, bumped with each new direct edge
	ReferralCountCache int64 `gorm:"not null;default:0" json:"referral_count_cache"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
