// handlers/admin.go
package handlers

import (
	"time"

	"game-prereg-system/models"
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes mounts operator endpoints. reports may be nil when
// export storage is not configured.
func SetupAdminRoutes(admin fiber.Router, stats *services.StatsService, reports *services.ReportService) {
	admin.Post("/stats/rollover", func(c *fiber.Ctx) error {
		if err := stats.Rollover(c.Context(), time.Now()); err != nil {
			return respondError(c, err, "en")
		}
		snap, err := stats.Snapshot(c.Context())
		if err != nil {
			return respondError(c, err, "en")
		}
		return c.JSON(fiber.Map{"success": true, "stats": snap})
	})

	admin.Post("/reports/export", func(c *fiber.Ctx) error {
		if reports == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   fiber.Map{"code": "EXPORT_DISABLED", "message": "report export is not configured"},
			})
		}

		day := time.Now().In(stats.Location).AddDate(0, 0, -1)
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.ParseInLocation(models.StatsDateLayout, raw, stats.Location)
			if err != nil {
				return badRequest(c, "date must be YYYY-MM-DD")
			}
			day = parsed
		}

		key, err := reports.ExportDaily(c.Context(), day)
		if err != nil {
			return respondError(c, err, "en")
		}
		return c.JSON(fiber.Map{"success": true, "key": key})
	})
}
