package services

import (
	"context"
	"errors"
	"log"
	"time"

	"game-prereg-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisteredUser is the public part of a newly created user
type RegisteredUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	ReferralCode string `json:"referral_code"`
}

type RegistrationResult struct {
	User               RegisteredUser `json:"user"`
	ReferralCode       string         `json:"referral_code"`
	TotalRegistrations int64          `json:"total_registrations"`
}

type RegistrationService struct {
	DB        *gorm.DB
	Identity  *IdentityService
	Referrals *ReferralService
	Rewards   *RewardService
	Stats     *StatsService

	Now          func() time.Time
	GenerateCode func() (string, error)
}

func NewRegistrationService(db *gorm.DB, identity *IdentityService, referrals *ReferralService, rewards *RewardService, stats *StatsService) *RegistrationService {
	return &RegistrationService{
		DB:           db,
		Identity:     identity,
		Referrals:    referrals,
		Rewards:      rewards,
		Stats:        stats,
		Now:          time.Now,
		GenerateCode: GenerateReferralCode,
	}
}

// CreateRegistration validates the form, rejects duplicates and unknown
// referral codes, then creates the user, its referral edges, the referrer's
// reward rows and the counter increment in one transaction. A referral code
// collision retries the whole transaction with a fresh code.
func (s *RegistrationService) CreateRegistration(ctx context.Context, input RegistrationInput) (*RegistrationResult, error) {
	in := input.Sanitize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	dup, err := s.Identity.CheckUserExists(ctx, in.Email, in.Nickname)
	if err != nil {
		return nil, err
	}
	if dup.Any() {
		return nil, dup.Err()
	}

	var referrer *models.User
	if in.ReferredByCode != "" {
		referrer, err = s.Identity.GetUserByReferralCode(ctx, in.ReferredByCode)
		if err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.GenerateCode()
		if err != nil {
			return nil, transientError("generate referral code", err)
		}

		user, total, err := s.insert(ctx, in, code, referrer)
		if err == nil {
			s.Stats.Announce(total)
			log.Printf("✅ [REGISTRATION] %s registered with code %s (total %d)", user.ID, user.ReferralCode, total)
			return &RegistrationResult{
				User: RegisteredUser{
					ID:           user.ID,
					Email:        user.Email,
					Nickname:     user.Nickname,
					ReferralCode: user.ReferralCode,
				},
				ReferralCode:       user.ReferralCode,
				TotalRegistrations: total,
			}, nil
		}

		if _, ok := AsDomainError(err); ok {
			return nil, err
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("❌ [REGISTRATION] Failed to register %s: %v", in.Email, err)
			return nil, transientError("create registration", err)
		}

		// lost a race on email or nickname, or the code collided
		dup, cerr := s.Identity.CheckUserExists(ctx, in.Email, in.Nickname)
		if cerr != nil {
			return nil, cerr
		}
		if dup.Any() {
			return nil, dup.Err()
		}
		log.Printf("⚠️ [REGISTRATION] Referral code collision on %s (attempt %d/%d)", code, attempt, MaxCodeAttempts)
	}

	log.Printf("❌ [REGISTRATION] Gave up issuing a referral code for %s", in.Email)
	return nil, &DomainError{Kind: KindTransient, Code: CodeRegistrationFailed, Err: ErrCodeSpaceExhausted}
}

func (s *RegistrationService) insert(ctx context.Context, in RegistrationInput, code string, referrer *models.User) (*models.User, int64, error) {
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Nickname:     in.Nickname,
		Name:         in.Name,
		Language:     models.Language(in.Language),
		ReferralCode: code,
	}
	if in.Phone != "" {
		phone := in.Phone
		user.Phone = &phone
	}
	if referrer != nil {
		user.ReferredByCode = &referrer.ReferralCode
		user.ReferredByUserID = &referrer.ID
	}

	var total int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if referrer != nil {
			count, err := s.Referrals.RecordEdge(tx, referrer.ID, user.ID)
			if err != nil {
				return err
			}
			if err := s.Rewards.SyncUserRewards(tx, referrer.ID, count); err != nil {
				return err
			}
		}
		var err error
		total, err = s.Stats.Increment(tx, s.Now())
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return user, total, nil
}
