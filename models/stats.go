package models

import "time"

// StatsDateLayout is the layout of RegistrationStats.Date
const StatsDateLayout = "2006-01-02"

// RegistrationStats is the per-day registration aggregate. The row with the
// latest Date carries the live totals.
type RegistrationStats struct {
	ID                 string    `gorm:"primaryKey;type:uuid" json:"id"`
	Date               string    `gorm:"uniqueIndex;not null;size:10" json:"date"`
	TotalRegistrations int64     `gorm:"not null;default:0" json:"total_registrations"`
	RegistrationsToday int64     `gorm:"not null;default:0" json:"registrations_today"`
	LastUpdated        time.Time `json:"last_updated"`
}

func (RegistrationStats) TableName() string {
	return "pre_registration_stats"
}
