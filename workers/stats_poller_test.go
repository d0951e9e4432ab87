package workers

import (
	"context"
	"testing"
	"time"

	"game-prereg-system/models"
	"game-prereg-system/services"
	"game-prereg-system/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollStatsPublishesStoredTotal(t *testing.T) {
	db := testutil.NewDB(t)
	feed := services.NewLiveFeed()
	stats := services.NewStatsService(db, feed, time.UTC)

	// written by another instance
	require.NoError(t, db.Create(&models.RegistrationStats{
		ID:                 uuid.NewString(),
		Date:               time.Now().UTC().Format(models.StatsDateLayout),
		TotalRegistrations: 42,
		RegistrationsToday: 3,
	}).Error)

	updates, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		PollStats(ctx, stats, 10*time.Millisecond)
		close(done)
	}()

	select {
	case total := <-updates:
		assert.EqualValues(t, 42, total)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never published")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
