package workers

import (
	"context"
	"log"
	"time"

	"game-prereg-system/services"
)

// PollStats republishes the stored registration total on every tick. Used
// when the store cannot push change notifications; the live feed drops
// totals it has already seen.
func PollStats(ctx context.Context, stats *services.StatsService, pollInterval time.Duration) {
	log.Printf("Starting stats polling every %s...", pollInterval)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stats polling stopped.")
			return
		case <-ticker.C:
			snap, err := stats.Snapshot(ctx)
			if err != nil {
				log.Printf("❌ Error polling stats: %v", err)
				continue
			}
			stats.Announce(snap.TotalRegistrations)
		}
	}
}
