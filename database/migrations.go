package database

import (
	"log"

	"game-prereg-system/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsNotifyChannel is the PostgreSQL NOTIFY channel fired on every change
// to pre_registration_stats. The payload is the new total.
const StatsNotifyChannel = "registration_count"

// Migrate runs all migrations in order
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createCoreTables(),
		seedRewardTiers(),
		createStatsNotifyTrigger(),
	})
	if err := m.Migrate(); err != nil {
		log.Printf("❌ [DB] Could not migrate: %v", err)
		return err
	}
	return nil
}

func createCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.User{},
				&models.Referral{},
				&models.RewardTier{},
				&models.UserReward{},
				&models.RegistrationStats{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&models.RegistrationStats{},
				&models.UserReward{},
				&models.RewardTier{},
				&models.Referral{},
				&models.User{},
			)
		},
	}
}

func ptr(v int64) *int64 { return &v }

// DefaultRewardTiers is the launch reward ladder. Ranges are contiguous and
// half-open, ordered by SortOrder.
func DefaultRewardTiers() []models.RewardTier {
	tiers := []models.RewardTier{
		{
			TierName: "Scout", MinReferrals: 1, MaxReferrals: ptr(3), SortOrder: 1,
			Rewards: []models.RewardItem{
				{Type: models.RewardTypeCurrency, Name: "Gold", Rarity: models.RarityCommon, Amount: 1000},
				{Type: models.RewardTypeWeapon, Name: "Recruit Blade", Rarity: models.RarityUncommon},
			},
			UnlockedEpisodes: []int{1},
		},
		{
			TierName: "Captain", MinReferrals: 3, MaxReferrals: ptr(5), SortOrder: 2,
			Rewards: []models.RewardItem{
				{Type: models.RewardTypeCurrency, Name: "Gold", Rarity: models.RarityCommon, Amount: 3000},
				{Type: models.RewardTypeSkin, Name: "Captain's Cloak", Rarity: models.RarityRare},
			},
			UnlockedEpisodes: []int{1, 2},
		},
		{
			TierName: "Commander", MinReferrals: 5, MaxReferrals: ptr(10), SortOrder: 3,
			Rewards: []models.RewardItem{
				{Type: models.RewardTypeCurrency, Name: "Gold", Rarity: models.RarityCommon, Amount: 5000},
				{Type: models.RewardTypeMount, Name: "War Horse", Rarity: models.RarityEpic},
			},
			UnlockedEpisodes: []int{1, 2, 3},
		},
		{
			TierName: "Warlord", MinReferrals: 10, MaxReferrals: ptr(20), SortOrder: 4,
			Rewards: []models.RewardItem{
				{Type: models.RewardTypeCurrency, Name: "Gold", Rarity: models.RarityCommon, Amount: 10000},
				{Type: models.RewardTypeWeapon, Name: "Dragonbone Axe", Rarity: models.RarityLegendary},
			},
			UnlockedEpisodes: []int{1, 2, 3, 4},
		},
		{
			TierName: "Emperor", MinReferrals: 20, SortOrder: 5,
			Rewards: []models.RewardItem{
				{Type: models.RewardTypeCurrency, Name: "Gold", Rarity: models.RarityCommon, Amount: 30000},
				{Type: models.RewardTypeTitle, Name: "Founder of the Empire", Rarity: models.RarityUnique},
				{Type: models.RewardTypeMount, Name: "Celestial Dragon", Rarity: models.RarityDivine},
			},
			UnlockedEpisodes: []int{1, 2, 3, 4, 5},
		},
	}
	for i := range tiers {
		tiers[i].Code = slug.Make(tiers[i].TierName)
		tiers[i].IsActive = true
	}
	return tiers
}

func seedRewardTiers() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_seed_reward_tiers",
		Migrate: func(tx *gorm.DB) error {
			tiers := DefaultRewardTiers()
			for i := range tiers {
				tiers[i].ID = uuid.NewString()
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&tiers).Error
		},
		Rollback: func(tx *gorm.DB) error {
			var codes []string
			for _, t := range DefaultRewardTiers() {
				codes = append(codes, t.Code)
			}
			return tx.Where("code IN ?", codes).Delete(&models.RewardTier{}).Error
		},
	}
}

// createStatsNotifyTrigger is a no-op outside PostgreSQL; other stores rely on
// the stats poller.
func createStatsNotifyTrigger() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_stats_notify_trigger",
		Migrate: func(tx *gorm.DB) error {
			if !IsPostgres(tx) {
				return nil
			}
			return tx.Exec(`
				CREATE OR REPLACE FUNCTION notify_registration_count() RETURNS trigger AS $$
				BEGIN
					PERFORM pg_notify('` + StatsNotifyChannel + `', NEW.total_registrations::text);
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;

				DROP TRIGGER IF EXISTS pre_registration_stats_notify ON pre_registration_stats;
				CREATE TRIGGER pre_registration_stats_notify
					AFTER INSERT OR UPDATE ON pre_registration_stats
					FOR EACH ROW EXECUTE FUNCTION notify_registration_count();
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if !IsPostgres(tx) {
				return nil
			}
			return tx.Exec(`
				DROP TRIGGER IF EXISTS pre_registration_stats_notify ON pre_registration_stats;
				DROP FUNCTION IF EXISTS notify_registration_count();
			`).Error
		},
	}
}
