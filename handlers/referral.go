// handlers/referral.go
package handlers

import (
	"game-prereg-system/middleware"
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, secured fiber.Router, identity *services.IdentityService, referrals *services.ReferralService) {
	// 🔓 Landing page lookup for ?ref=CODE
	app.Get("/referrals/:code", func(c *fiber.Ctx) error {
		user, err := identity.GetUserByReferralCode(c.Context(), c.Params("code"))
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"referrer": fiber.Map{
				"nickname":      user.Nickname,
				"referral_code": user.ReferralCode,
			},
		})
	})

	// 🔐 Secured
	secured.Get("/network", func(c *fiber.Ctx) error {
		network, err := referrals.GetNetwork(c.Context(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"network": network.Nodes,
			"stats":   network.Stats,
		})
	})
}
