// handlers/user_routes.go
package handlers

import (
	"errors"
	"regexp"

	"kabbalah-code-system/middleware"
	"kabbalah-code-system/models"
	"kabbalah-code-system/services"
	"kabbalah-code-system/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
)

var evmAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

func SetupUserRoutes(
	app *fiber.App,
	ledger store.Ledger,
	predictionService *services.PredictionService,
	fortuneService *services.FortuneService,
	leaderboardService *services.LeaderboardService,
) {
	// 🔓 Public routes
	app.Post("/api/auth/onboard", onboardHandler(ledger))

	app.Get("/api/leaderboard", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		entries, err := leaderboardService.TopUsers(c.Context(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build leaderboard"})
		}
		return c.JSON(entries)
	})

	// 🔐 Secured routes — require user identity
	secured := app.Group("/api", middleware.UserContextMiddleware())

	secured.Get("/user/profile", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		acc, err := ledger.GetAccount(c.Context(), userID)
		if err != nil {
			return errorJSON(c, err, "user not found")
		}
		referralCount, err := leaderboardService.DirectReferralCount(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count referrals"})
		}
		spunToday, err := ledger.HasSpun(c.Context(), userID, services.Today())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to check spin state"})
		}
		return c.JSON(fiber.Map{
			"user":           acc,
			"referral_count": referralCount,
			"xp_to_next":     services.XPForLevel(acc.Level),
			"can_spin":       !spunToday,
		})
	})

	secured.Get("/prediction/daily", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		p, err := predictionService.GetOrCreateDaily(c.Context(), userID, services.Today())
		if err != nil {
			return errorJSON(c, err, "failed to issue prediction")
		}
		return c.JSON(p)
	})

	secured.Post("/prediction/verify", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			Code     string `json:"code"`
			TweetURL string `json:"tweet_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		acc, err := predictionService.Verify(c.Context(), userID, services.Today(), req.Code)
		if err != nil {
			return errorJSON(c, err, "verification failed")
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"points_earned": services.PredictionReward,
			"new_balance":   acc.Points,
		})
	})

	secured.Post("/fortune/spin", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		points, acc, err := fortuneService.Spin(c.Context(), userID, services.Today())
		if err != nil {
			return errorJSON(c, err, "spin failed")
		}
		return c.JSON(fiber.Map{
			"points":      points,
			"new_balance": acc.Points,
		})
	})

	secured.Get("/referral/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		stats, err := leaderboardService.Stats(c.Context(), userID)
		if err != nil {
			return errorJSON(c, err, "failed to aggregate referral stats")
		}
		return c.JSON(stats)
	})
}

// onboardHandler creates the per-user Account. The reward engine never
// creates or deletes accounts itself.
func onboardHandler(ledger store.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			TelegramID      string `json:"telegram_id"`
			Username        string `json:"username"`
			EVMAddress      string `json:"evm_address"`
			TwitterUsername string `json:"twitter_username"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.TelegramID == "" || req.Username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "telegram_id and username are required"})
		}
		if req.EVMAddress != "" && !evmAddressPattern.MatchString(req.EVMAddress) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid EVM address"})
		}

		if _, err := ledger.GetAccount(c.Context(), req.TelegramID); err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "user already onboarded"})
		}

		// Referrer must pre-exist and may not be the user themselves; an
		// unknown or self referrer drops the link rather than failing
		// onboarding. New nodes always point at existing ones, so the
		// referral graph stays a forest.
		var referrerID *string
		if referrer := c.Query("referrer"); referrer != "" && referrer != req.TelegramID {
			if _, err := ledger.GetAccount(c.Context(), referrer); err == nil {
				referrerID = &referrer
			}
		}

		acc := &models.Account{
			TelegramID:      req.TelegramID,
			Username:        req.Username,
			Handle:          slug.Make(unidecode.Unidecode(req.Username)),
			EVMAddress:      req.EVMAddress,
			TwitterUsername: req.TwitterUsername,
			Level:           1,
			ReferrerID:      referrerID,
		}
		if err := ledger.PutAccount(c.Context(), acc); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create account"})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"user":    acc,
		})
	}
}

// errorJSON maps ledger and engine errors onto HTTP statuses.
func errorJSON(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadySpun),
		errors.Is(err, services.ErrAlreadyVerified),
		errors.Is(err, store.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCode):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
