package workers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"game-prereg-system/database"
	"game-prereg-system/services"

	"github.com/lib/pq"
)

// StatsListener relays PostgreSQL NOTIFY events on the stats channel into
// the local live feed, so every instance sees registrations made elsewhere.
type StatsListener struct {
	dsn   string
	stats *services.StatsService
}

func NewStatsListener(dsn string, stats *services.StatsService) *StatsListener {
	return &StatsListener{dsn: dsn, stats: stats}
}

// Run blocks until ctx is cancelled
func (l *StatsListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("⚠️ [STATS_LISTENER] Connection event %d: %v", ev, err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(database.StatsNotifyChannel); err != nil {
		return fmt.Errorf("listen on %s: %w", database.StatsNotifyChannel, err)
	}
	log.Printf("✅ [STATS_LISTENER] Listening on %s", database.StatsNotifyChannel)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stats listener stopped.")
			return nil

		case n := <-listener.Notify:
			if n == nil {
				// reconnected; notifications may have been missed
				l.resync(ctx)
				continue
			}
			total, err := strconv.ParseInt(n.Extra, 10, 64)
			if err != nil {
				log.Printf("⚠️ [STATS_LISTENER] Bad payload %q: %v", n.Extra, err)
				continue
			}
			l.stats.Announce(total)

		case <-ping.C:
			if err := listener.Ping(); err != nil {
				log.Printf("⚠️ [STATS_LISTENER] Ping failed: %v", err)
			}
		}
	}
}

func (l *StatsListener) resync(ctx context.Context) {
	snap, err := l.stats.Snapshot(ctx)
	if err != nil {
		log.Printf("❌ [STATS_LISTENER] Resync failed: %v", err)
		return
	}
	l.stats.Announce(snap.TotalRegistrations)
}
