package main

import (
	"context"
	"time"

	"belegflow-backend/config"
	"belegflow-backend/controllers"
	"belegflow-backend/database"
	"belegflow-backend/logger"
	"belegflow-backend/middlewares"
	"belegflow-backend/routes"
	"belegflow-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"
)

func main() {
	// ---- Database (public) + config; Connect loads .env first
	database.Connect()
	database.AutoMigrate()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	// ---- Object storage for uploaded receipt files
	storage, err := services.NewStorageService(
		cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storage.EnsureBucket(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("storage bucket unavailable")
	}
	cancel()

	// ---- AI extraction client (Gemini via OpenAI-compatible endpoint)
	extraction := services.NewExtractionService(
		cfg.ExtractionBaseURL, cfg.ExtractionAPIKey, cfg.ExtractionModel)

	upload := controllers.NewUploadController(storage, extraction)
	controllers.UseFileStore(storage)

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    cfg.BodyLimitBytes,
	})

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes; tune via env)
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		// Default KeyGenerator = client IP; default 429 handler is fine.
	}))

	// ---- Routes
	routes.Register(app, upload)

	// ---- Start
	log.Info().Str("port", cfg.Port).Msg("API server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
