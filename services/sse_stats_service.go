package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

type countEvent struct {
	TotalRegistrations int64 `json:"total_registrations"`
}

func writeCountEvent(w *bufio.Writer, total int64) error {
	payload, _ := json.Marshal(countEvent{TotalRegistrations: total})
	if _, err := fmt.Fprintf(w, "event: count\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// StreamCountSSE streams the live registration total. The current snapshot
// is sent first, then every update from the live feed until the client goes
// away or the server shuts down.
func (s *StatsService) StreamCountSSE(c *fiber.Ctx) error {
	snap, err := s.Snapshot(c.Context())
	if err != nil {
		return err
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	reqCtx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		updates, unsubscribe := s.Feed.Subscribe()
		defer unsubscribe()

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		if err := writeCountEvent(w, snap.TotalRegistrations); err != nil {
			return
		}

		for {
			select {
			case total, ok := <-updates:
				if !ok {
					return
				}
				if err := writeCountEvent(w, total); err != nil {
					// Client disconnected
					return
				}

			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-reqCtx.Done():
				log.Printf("[SSE] Closing stats stream on shutdown")
				return
			}
		}
	})

	return nil
}
