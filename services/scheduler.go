// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartStatsScheduler runs the daily counter rollover at midnight and, when
// reports is non-nil, exports the previous day's report five minutes later.
// Both jobs run in loc. The caller owns Shutdown.
func StartStatsScheduler(ctx context.Context, stats *StatsService, reports *ReportService, loc *time.Location) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	// 00:00: open today's stats row
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			if err := stats.Rollover(ctx, time.Now()); err != nil {
				log.Printf("[Scheduler] Rollover failed: %v", err)
			}
		}),
		gocron.WithName("stats-rollover"),
	)
	if err != nil {
		return nil, err
	}

	if reports != nil {
		// 00:05: export yesterday
		_, err = sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
			gocron.NewTask(func() {
				if _, err := reports.ExportDaily(ctx, time.Now().In(loc).AddDate(0, 0, -1)); err != nil {
					log.Printf("[Scheduler] Report export failed: %v", err)
				}
			}),
			gocron.WithName("stats-report-export"),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	log.Printf("✅ [Scheduler] Started (%s)", loc)
	return sched, nil
}
