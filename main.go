package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"kabbalah-code-system/handlers"
	"kabbalah-code-system/services"
	"kabbalah-code-system/store"
	"kabbalah-code-system/utils"
	"kabbalah-code-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Telegram-Init-Data",
	}))

	// Ledger store selection: DATABASE_URL → PostgreSQL, otherwise in-memory.
	// Everything above the store works against the same interface.
	var ledger store.Ledger
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.AutoMigrate(); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		ledger = pg
		log.Println("✅ Using PostgreSQL ledger store")
	} else {
		ledger = store.NewMemory()
		log.Println("⚠️  DATABASE_URL not set — using in-memory ledger store")
	}

	rewardService := services.NewRewardService(ledger)
	predictionService := services.NewPredictionService(ledger, rewardService)
	fortuneService := services.NewFortuneService(ledger, rewardService)
	leaderboardService := services.NewLeaderboardService(ledger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional: periodic ledger snapshot export to R2
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		interval := 60 * time.Minute
		if v := os.Getenv("SNAPSHOT_INTERVAL_MINUTES"); v != "" {
			if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
				interval = time.Duration(minutes) * time.Minute
			}
		}
		workers.StartLedgerSnapshotWorker(ctx, ledger, interval)
		log.Printf("✅ Ledger snapshot worker running (every %s)", interval)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Kabbalah Code API",
			"version": "1.0.0",
			"status":  "operational",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	handlers.SetupUserRoutes(app, ledger, predictionService, fortuneService, leaderboardService)
	handlers.SetupAdminRoutes(app, ledger, rewardService)

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
