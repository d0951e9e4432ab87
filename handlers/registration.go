// handlers/registration.go
package handlers

import (
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRegistrationRoutes(app *fiber.App, registration *services.RegistrationService, identity *services.IdentityService, throttle fiber.Handler) {
	// 🔓 Public routes
	app.Post("/registrations", throttle, func(c *fiber.Ctx) error {
		var req services.RegistrationInput
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		result, err := registration.CreateRegistration(c.Context(), req)
		if err != nil {
			return respondError(c, err, req.Language)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":            true,
			"user":               result.User,
			"referralCode":       result.ReferralCode,
			"totalRegistrations": result.TotalRegistrations,
		})
	})

	app.Get("/registrations/check", func(c *fiber.Ctx) error {
		email, nickname := c.Query("email"), c.Query("nickname")
		if email == "" && nickname == "" {
			return badRequest(c, "email or nickname is required")
		}

		result, err := identity.CheckUserExists(c.Context(), email, nickname)
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"email_exists":    result.EmailExists,
			"nickname_exists": result.NicknameExists,
		})
	})
}
