package middleware

import (
	"log"
	"os"
	"strings"

	"kabbalah-code-system/utils"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware resolves the calling user's identity and attaches it
// to the request context. Two schemes, checked in order:
//
//  1. X-Telegram-Init-Data header — the Telegram WebApp initData blob,
//     HMAC-verified against TELEGRAM_BOT_TOKEN when that env var is set.
//  2. Authorization: Bearer <telegram_id> — the demo scheme used outside
//     Telegram.
//
// Identity resolution is all this layer does: whether the user exists is the
// ledger's business, so the reward operations stay testable without any
// particular auth mechanism.
func UserContextMiddleware() fiber.Handler {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")

	return func(c *fiber.Ctx) error {
		if initData := c.Get("X-Telegram-Init-Data"); initData != "" && botToken != "" {
			user, err := utils.VerifyTelegramInitData(initData, botToken)
			if err != nil {
				log.Printf("❌ [USER_CTX] initData verification failed on %s: %v", c.Path(), err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid Telegram init data",
				})
			}
			c.Locals("user_id", user.TelegramID())
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}
		userID := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not authenticated",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
