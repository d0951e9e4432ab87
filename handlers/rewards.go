// handlers/rewards.go
package handlers

import (
	"game-prereg-system/middleware"
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, secured fiber.Router, rewards *services.RewardService) {
	// 🔓 Public tier catalogue
	app.Get("/rewards/tiers", func(c *fiber.Ctx) error {
		tiers, err := rewards.ListTiers(c.Context())
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{"success": true, "tiers": tiers})
	})

	app.Get("/rewards/tiers/:code", func(c *fiber.Ctx) error {
		tier, err := rewards.GetTierByCode(c.Context(), c.Params("code"))
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{"success": true, "tier": tier})
	})

	// 🔐 Secured
	secured.Get("/rewards", func(c *fiber.Ctx) error {
		info, err := rewards.GetRewardInfo(c.Context(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"currentTier":     info.CurrentTier,
			"nextTier":        info.NextTier,
			"referralCount":   info.ReferralCount,
			"referralsToNext": info.ReferralsToNext,
			"unlockedRewards": info.UnlockedRewards,
			"claims":          info.Claims,
		})
	})

	secured.Post("/rewards/:tierId/claim", func(c *fiber.Ctx) error {
		result, err := rewards.ClaimReward(c.Context(), middleware.UserID(c), c.Params("tierId"))
		if err != nil {
			return respondError(c, err, c.Query("lang"))
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"tierId":         result.TierID,
			"claimedAt":      result.ClaimedAt,
			"alreadyClaimed": result.AlreadyClaimed,
		})
	})
}
