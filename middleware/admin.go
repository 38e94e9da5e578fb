package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware validates the admin Bearer token against ADMIN_SECRET.
func AdminAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("ADMIN_SECRET")
	if expectedToken == "" {
		log.Fatal("❌ ADMIN_SECRET is not set — admin endpoints cannot be protected")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — try raw value
			token = authHeader
		}

		if token == "" || token != expectedToken {
			log.Printf("🚫 [ADMIN_AUTH] Rejected admin call to %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access denied",
			})
		}

		return c.Next()
	}
}
