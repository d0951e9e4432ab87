// handlers/auth.go
package handlers

import (
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, auth *services.AuthService, throttle fiber.Handler) {
	app.Post("/auth/magic-link", throttle, func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Language string `json:"language"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		if err := auth.RequestMagicLink(c.Context(), req.Email); err != nil {
			return respondError(c, err, req.Language)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	app.Post("/auth/callback", func(c *fiber.Ctx) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		tokens, err := services.ParseAuthCallback(req.URL)
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{"success": true, "session": tokens})
	})
}
