package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"game-prereg-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NetworkNode is one invitee in a user's network. Level-1 nodes carry their
// own direct invitees as level-2 children; deeper hops are not tracked.
type NetworkNode struct {
	Level        int           `json:"level"`
	UserID       string        `json:"user_id"`
	Nickname     string        `json:"nickname"`
	ReferralCode string        `json:"referral_code"`
	CreatedAt    time.Time     `json:"created_at"`
	Children     []NetworkNode `json:"children"`
}

type NetworkStats struct {
	DirectInvites   int64 `json:"direct_invites"`
	IndirectInvites int64 `json:"indirect_invites"`
	TotalSize       int64 `json:"total_size"` // root counts itself
}

type Network struct {
	RootUserID string        `json:"root_user_id"`
	Nodes      []NetworkNode `json:"network"`
	Stats      NetworkStats  `json:"stats"`
}

type ReferralService struct {
	DB *gorm.DB
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db}
}

// RecordEdge links a new referee to its referrer inside the caller's
// transaction. It writes the level-1 edge, the level-2 edge when the referrer
// was itself referred, and bumps the referrer's cached count. The new count
// is returned.
func (s *ReferralService) RecordEdge(tx *gorm.DB, referrerID, refereeID string) (int64, error) {
	if referrerID == refereeID {
		return 0, &DomainError{Kind: KindReferential, Code: CodeSelfReferral, Field: "referred_by_code", Err: ErrSelfReferral}
	}

	direct := models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		RefereeID:  refereeID,
		Level:      models.ReferralLevelDirect,
	}
	if err := tx.Create(&direct).Error; err != nil {
		return 0, fmt.Errorf("insert level-1 edge: %w", err)
	}

	var parent models.Referral
	err := tx.Where("referee_id = ? AND level = ?", referrerID, models.ReferralLevelDirect).First(&parent).Error
	switch {
	case err == nil:
		indirect := models.Referral{
			ID:         uuid.NewString(),
			ReferrerID: parent.ReferrerID,
			RefereeID:  refereeID,
			Level:      models.ReferralLevelIndirect,
		}
		if err := tx.Create(&indirect).Error; err != nil {
			return 0, fmt.Errorf("insert level-2 edge: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, fmt.Errorf("lookup referrer edge: %w", err)
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", referrerID).
		UpdateColumn("referral_count_cache", gorm.Expr("referral_count_cache + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment referral count: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return 0, &DomainError{Kind: KindReferential, Code: CodeReferralCodeNotFound, Field: "referred_by_code", Err: ErrInvalidReferralCode}
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", referrerID).Pluck("referral_count_cache", &count).Error; err != nil {
		return 0, fmt.Errorf("read referral count: %w", err)
	}
	return count, nil
}

type edgeRow struct {
	ReferrerID   string
	UserID       string
	Nickname     string
	ReferralCode string
	CreatedAt    time.Time
}

// GetNetwork returns the root's direct invitees, oldest first, each with
// their own invitees. An unknown root is NotFound; a root with no invites
// is an empty network.
func (s *ReferralService) GetNetwork(ctx context.Context, rootUserID string) (*Network, error) {
	db := s.DB.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.User{}).Where("id = ?", rootUserID).Count(&exists).Error; err != nil {
		return nil, transientError("load network root", err)
	}
	if exists == 0 {
		return nil, notFound(CodeUserNotFound, ErrUserNotFound)
	}

	network := &Network{RootUserID: rootUserID, Nodes: []NetworkNode{}}

	direct, err := directEdges(db, []string{rootUserID})
	if err != nil {
		log.Printf("❌ [REFERRAL] Failed to load network for %s: %v", rootUserID, err)
		return nil, transientError("load direct invites", err)
	}
	if len(direct) == 0 {
		network.Stats.TotalSize = 1
		return network, nil
	}

	ids := make([]string, 0, len(direct))
	for _, row := range direct {
		ids = append(ids, row.UserID)
	}
	indirect, err := directEdges(db, ids)
	if err != nil {
		log.Printf("❌ [REFERRAL] Failed to load network for %s: %v", rootUserID, err)
		return nil, transientError("load indirect invites", err)
	}

	children := make(map[string][]NetworkNode, len(direct))
	for _, row := range indirect {
		children[row.ReferrerID] = append(children[row.ReferrerID], NetworkNode{
			Level:        models.ReferralLevelIndirect,
			UserID:       row.UserID,
			Nickname:     row.Nickname,
			ReferralCode: row.ReferralCode,
			CreatedAt:    row.CreatedAt,
			Children:     []NetworkNode{},
		})
	}

	for _, row := range direct {
		kids := children[row.UserID]
		if kids == nil {
			kids = []NetworkNode{}
		}
		network.Nodes = append(network.Nodes, NetworkNode{
			Level:        models.ReferralLevelDirect,
			UserID:       row.UserID,
			Nickname:     row.Nickname,
			ReferralCode: row.ReferralCode,
			CreatedAt:    row.CreatedAt,
			Children:     kids,
		})
		network.Stats.IndirectInvites += int64(len(kids))
	}
	network.Stats.DirectInvites = int64(len(direct))
	network.Stats.TotalSize = 1 + network.Stats.DirectInvites + network.Stats.IndirectInvites
	return network, nil
}

// directEdges loads level-1 edges whose referrer is in referrerIDs, oldest first
func directEdges(db *gorm.DB, referrerIDs []string) ([]edgeRow, error) {
	var rows []edgeRow
	err := db.Table("referrals").
		Select("referrals.referrer_id, users.id AS user_id, users.nickname, users.referral_code, referrals.created_at").
		Joins("JOIN users ON users.id = referrals.referee_id").
		Where("referrals.level = ? AND referrals.referrer_id IN ?", models.ReferralLevelDirect, referrerIDs).
		Order("referrals.created_at ASC").
		Scan(&rows).Error
	return rows, err
}
