package handlers

import (
	"log"
	"math"
	"strconv"

	"game-prereg-system/models"
	"game-prereg-system/services"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:  fiber.StatusBadRequest,
	services.KindDuplicate:   fiber.StatusConflict,
	services.KindReferential: fiber.StatusUnprocessableEntity,
	services.KindNotFound:    fiber.StatusNotFound,
	services.KindNotEligible: fiber.StatusForbidden,
	services.KindRateLimited: fiber.StatusTooManyRequests,
	services.KindAuth:        fiber.StatusUnauthorized,
	services.KindTransient:   fiber.StatusServiceUnavailable,
}

// respondError turns any service error into the structured failure body
// with a message localized for preferredLang or the Accept-Language header.
func respondError(c *fiber.Ctx, err error, preferredLang string) error {
	lang := services.NegotiateLanguage(preferredLang, c.Get(fiber.HeaderAcceptLanguage))

	status := fiber.StatusInternalServerError
	body := fiber.Map{
		"code":        services.CodeUnknown,
		"message":     services.UserMessage(err, models.LanguageEnglish),
		"userMessage": services.UserMessage(err, lang),
	}

	de, ok := services.AsDomainError(err)
	if !ok {
		log.Printf("❌ [HTTP] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"success": false, "error": body})
	}

	if s, ok := kindStatus[de.Kind]; ok {
		status = s
	}
	body["code"] = de.Code
	body["retryable"] = de.Retryable()
	if de.Field != "" {
		body["field"] = de.Field
	}
	if de.Kind == services.KindRateLimited {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(de.RetryAfter.Seconds()))))
		body["retryAfterMinutes"] = de.RetryAfterMinutes()
	}
	if de.Kind == services.KindTransient {
		log.Printf("⚠️ [HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": body})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "INVALID_REQUEST",
			"message": message,
		},
	})
}
