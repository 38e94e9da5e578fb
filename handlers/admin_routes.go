// handlers/admin_routes.go
package handlers

import (
	"kabbalah-code-system/middleware"
	"kabbalah-code-system/services"
	"kabbalah-code-system/store"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, ledger store.Ledger, rewardService *services.RewardService) {
	admin := app.Group("/api/admin", middleware.AdminAuthMiddleware())

	admin.Get("/users", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		accs, err := ledger.AllAccounts(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list users"})
		}
		if limit > 0 && len(accs) > limit {
			accs = accs[:limit]
		}
		return c.JSON(accs)
	})

	admin.Post("/points", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Points int64  `json:"points"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		acc, err := rewardService.AdminAdjustPoints(c.Context(), req.UserID, req.Points)
		if err != nil {
			return errorJSON(c, err, "adjustment failed")
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"new_balance": acc.Points,
		})
	})
}
