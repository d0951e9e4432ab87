package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"game-prereg-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// ObjectUploader stores a finished report
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// TierDistribution is how many users currently sit in a tier
type TierDistribution struct {
	Tier    models.RewardTier
	Users   int64
	Claimed int64
}

type ReportService struct {
	DB       *gorm.DB
	Stats    *StatsService
	Rewards  *RewardService
	Uploader ObjectUploader
	SiteName string
}

func NewReportService(db *gorm.DB, stats *StatsService, rewards *RewardService, uploader ObjectUploader, siteName string) *ReportService {
	return &ReportService{DB: db, Stats: stats, Rewards: rewards, Uploader: uploader, SiteName: siteName}
}

// ReportKey is the object key for a day's report
func (s *ReportService) ReportKey(date string) string {
	return fmt.Sprintf("reports/%s/%s.csv", slug.Make(s.SiteName), date)
}

// TierDistribution counts users whose direct-referral count falls inside
// each active tier, plus how many of them claimed it.
func (s *ReportService) TierDistribution(ctx context.Context) ([]TierDistribution, error) {
	tiers, err := s.Rewards.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	out := make([]TierDistribution, 0, len(tiers))
	for _, t := range tiers {
		d := TierDistribution{Tier: t}
		q := db.Model(&models.User{}).Where("referral_count_cache >= ?", t.MinReferrals)
		if t.MaxReferrals != nil {
			q = q.Where("referral_count_cache < ?", *t.MaxReferrals)
		}
		if err := q.Count(&d.Users).Error; err != nil {
			return nil, transientError("count tier users", err)
		}
		if err := db.Model(&models.UserReward{}).Where("tier_id = ? AND is_claimed = ?", t.ID, true).Count(&d.Claimed).Error; err != nil {
			return nil, transientError("count tier claims", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// BuildDailyReport renders the day's counters and the tier distribution as CSV
func (s *ReportService) BuildDailyReport(ctx context.Context, date string) ([]byte, error) {
	day, err := s.Stats.GetDay(ctx, date)
	if err != nil {
		if !IsKind(err, KindNotFound) {
			return nil, err
		}
		day = &models.RegistrationStats{Date: date}
	}
	dist, err := s.TierDistribution(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"metric", "value"},
		{"date", day.Date},
		{"total_registrations", strconv.FormatInt(day.TotalRegistrations, 10)},
		{"registrations_today", strconv.FormatInt(day.RegistrationsToday, 10)},
		{},
		{"tier", "min_referrals", "max_referrals", "users", "claimed"},
	}
	for _, d := range dist {
		upper := ""
		if d.Tier.MaxReferrals != nil {
			upper = strconv.FormatInt(*d.Tier.MaxReferrals, 10)
		}
		records = append(records, []string{
			d.Tier.TierName,
			strconv.FormatInt(d.Tier.MinReferrals, 10),
			upper,
			strconv.FormatInt(d.Users, 10),
			strconv.FormatInt(d.Claimed, 10),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportDaily uploads the report for day and returns its key
func (s *ReportService) ExportDaily(ctx context.Context, day time.Time) (string, error) {
	if s.Uploader == nil {
		return "", fmt.Errorf("report export is not configured")
	}
	date := s.Stats.day(day)
	data, err := s.BuildDailyReport(ctx, date)
	if err != nil {
		log.Printf("❌ [REPORT] Failed to build report for %s: %v", date, err)
		return "", err
	}

	key := s.ReportKey(date)
	url, err := s.Uploader.Upload(ctx, key, "text/csv", data)
	if err != nil {
		log.Printf("❌ [REPORT] Failed to upload %s: %v", key, err)
		return "", transientError("upload report", err)
	}
	log.Printf("📤 [REPORT] Exported %s", url)
	return key, nil
}
