package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"game-prereg-system/models"

	"gorm.io/gorm"
)

// DuplicateCheckResult reports email and nickname collisions independently
type DuplicateCheckResult struct {
	EmailExists    bool `json:"email_exists"`
	NicknameExists bool `json:"nickname_exists"`
}

// Any reports whether either identifier is taken
func (r DuplicateCheckResult) Any() bool {
	return r.EmailExists || r.NicknameExists
}

// Err maps the result to a Duplicate error; email takes precedence
func (r DuplicateCheckResult) Err() error {
	switch {
	case r.EmailExists:
		return duplicateEmail()
	case r.NicknameExists:
		return duplicateNickname()
	}
	return nil
}

type IdentityService struct {
	DB *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{DB: db}
}

// CheckUserExists looks up both identifiers in a single query. A store
// failure is returned as a Transient error, never as "no duplicate".
func (s *IdentityService) CheckUserExists(ctx context.Context, email, nickname string) (DuplicateCheckResult, error) {
	return checkUserExists(s.DB.WithContext(ctx), email, nickname)
}

func checkUserExists(db *gorm.DB, email, nickname string) (DuplicateCheckResult, error) {
	var result DuplicateCheckResult
	email = NormalizeEmail(email)
	nickname = strings.TrimSpace(nickname)
	if email == "" && nickname == "" {
		return result, nil
	}

	q := db.Model(&models.User{}).Select("email", "nickname")
	switch {
	case email != "" && nickname != "":
		q = q.Where("email = ? OR nickname = ?", email, nickname)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("nickname = ?", nickname)
	}

	var matches []models.User
	if err := q.Limit(2).Find(&matches).Error; err != nil {
		log.Printf("❌ [IDENTITY] Duplicate check failed: %v", err)
		return result, transientError("check user exists", err)
	}
	for _, u := range matches {
		if email != "" && u.Email == email {
			result.EmailExists = true
		}
		if nickname != "" && u.Nickname == nickname {
			result.NicknameExists = true
		}
	}
	return result, nil
}

// GetUserByID returns a NotFound error for unknown ids
func (s *IdentityService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

// GetUserByEmail matches the normalized address
func (s *IdentityService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", NormalizeEmail(email))
}

// GetUserByReferralCode resolves a code to its owner. Malformed codes are
// rejected before touching the store.
func (s *IdentityService) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	code = NormalizeReferralCode(code)
	if !IsValidReferralCode(code) {
		return nil, validationError("referral_code", CodeInvalidReferralCode)
	}
	user, err := s.findUser(ctx, "referral_code = ?", code)
	if IsKind(err, KindNotFound) {
		return nil, &DomainError{Kind: KindReferential, Code: CodeReferralCodeNotFound, Field: "referral_code", Err: ErrInvalidReferralCode}
	}
	return user, err
}

func (s *IdentityService) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(CodeUserNotFound, ErrUserNotFound)
	}
	if err != nil {
		return nil, transientError("find user", err)
	}
	return &user, nil
}
