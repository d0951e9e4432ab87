// handlers/stats.go
package handlers

import (
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStatsRoutes(app *fiber.App, stats *services.StatsService) {
	app.Get("/stats", func(c *fiber.Ctx) error {
		snap, err := stats.Snapshot(c.Context())
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{"success": true, "stats": snap})
	})

	// SSE: event "count" per change
	app.Get("/stats/stream", func(c *fiber.Ctx) error {
		if err := stats.StreamCountSSE(c); err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return nil
	})
}
