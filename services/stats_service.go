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
	"gorm.io/gorm/clause"
)

// Snapshot is the current registration counter
type Snapshot struct {
	Date               string    `json:"date,omitempty"`
	TotalRegistrations int64     `json:"total_registrations"`
	RegistrationsToday int64     `json:"registrations_today"`
	LastUpdated        time.Time `json:"last_updated"`
}

type StatsService struct {
	DB       *gorm.DB
	Feed     *LiveFeed
	Location *time.Location
}

// NewStatsService counts days in loc; nil means UTC
func NewStatsService(db *gorm.DB, feed *LiveFeed, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{DB: db, Feed: feed, Location: loc}
}

func (s *StatsService) day(t time.Time) string {
	return t.In(s.Location).Format(models.StatsDateLayout)
}

// Snapshot reads the latest day's row. No rows yet means all zeros.
func (s *StatsService) Snapshot(ctx context.Context) (Snapshot, error) {
	var row models.RegistrationStats
	err := s.DB.WithContext(ctx).Order("date DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		log.Printf("❌ [STATS] Failed to read snapshot: %v", err)
		return Snapshot{}, transientError("read stats", err)
	}
	return Snapshot{
		Date:               row.Date,
		TotalRegistrations: row.TotalRegistrations,
		RegistrationsToday: row.RegistrationsToday,
		LastUpdated:        row.LastUpdated,
	}, nil
}

// GetDay returns the stored row for date (YYYY-MM-DD)
func (s *StatsService) GetDay(ctx context.Context, date string) (*models.RegistrationStats, error) {
	var row models.RegistrationStats
	err := s.DB.WithContext(ctx).Where("date = ?", date).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(CodeUnknown, fmt.Errorf("no stats for %s", date))
	}
	if err != nil {
		return nil, transientError("read stats day", err)
	}
	return &row, nil
}

// Increment counts one registration inside the caller's transaction and
// returns the new total. The count lands on now's day, or on a later day
// if a rollover has already opened one, so the latest row always carries
// every committed registration.
func (s *StatsService) Increment(tx *gorm.DB, now time.Time) (int64, error) {
	date := s.day(now)
	var latest []string
	if err := tx.Model(&models.RegistrationStats{}).Order("date DESC").Limit(1).Pluck("date", &latest).Error; err != nil {
		return 0, fmt.Errorf("read latest stats day: %w", err)
	}
	if len(latest) == 1 && latest[0] > date {
		date = latest[0]
	}
	if err := ensureDay(tx, date, now); err != nil {
		return 0, err
	}

	err := tx.Model(&models.RegistrationStats{}).
		Where("date = ?", date).
		Updates(map[string]any{
			"registrations_today": gorm.Expr("registrations_today + ?", 1),
			"last_updated":        now,
		}).Error
	if err != nil {
		return 0, fmt.Errorf("increment today: %w", err)
	}
	// rows opened after date carried the old total forward
	err = tx.Model(&models.RegistrationStats{}).
		Where("date >= ?", date).
		UpdateColumn("total_registrations", gorm.Expr("total_registrations + ?", 1)).Error
	if err != nil {
		return 0, fmt.Errorf("increment total: %w", err)
	}

	var totals []int64
	if err := tx.Model(&models.RegistrationStats{}).Order("date DESC").Limit(1).Pluck("total_registrations", &totals).Error; err != nil {
		return 0, fmt.Errorf("read total: %w", err)
	}
	if len(totals) == 0 {
		return 0, fmt.Errorf("read total: no stats row for %s", date)
	}
	return totals[0], nil
}

// Rollover opens the row for now's day, carrying the running total forward
func (s *StatsService) Rollover(ctx context.Context, now time.Time) error {
	date := s.day(now)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ensureDay(tx, date, now)
	})
	if err != nil {
		log.Printf("❌ [STATS] Rollover to %s failed: %v", date, err)
		return transientError("rollover stats", err)
	}
	log.Printf("📅 [STATS] Rolled over to %s", date)
	return nil
}

// Announce pushes a committed total to local observers
func (s *StatsService) Announce(total int64) {
	if s.Feed != nil {
		s.Feed.Publish(total)
	}
}

func ensureDay(tx *gorm.DB, date string, now time.Time) error {
	var prev models.RegistrationStats
	var carried int64
	err := tx.Where("date < ?", date).Order("date DESC").First(&prev).Error
	switch {
	case err == nil:
		carried = prev.TotalRegistrations
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("read previous stats: %w", err)
	}

	row := models.RegistrationStats{
		ID:                 uuid.NewString(),
		Date:               date,
		TotalRegistrations: carried,
		LastUpdated:        now,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("open stats day: %w", err)
	}
	return nil
}
