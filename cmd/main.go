package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/nytrelay/internal/api"
	"github.com/bilgisen/nytrelay/internal/cache"
	"github.com/bilgisen/nytrelay/internal/config"
	"github.com/bilgisen/nytrelay/internal/logger"
	"github.com/bilgisen/nytrelay/internal/metrics"
	"github.com/bilgisen/nytrelay/internal/middleware"
	"github.com/bilgisen/nytrelay/internal/news"
	"github.com/bilgisen/nytrelay/internal/nyt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const (
	serviceName = "nytimes-relay"
	version     = "1.0.0"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init(logger.Config{Level: "info", Output: "stderr", Pretty: true})
		logger.Get().Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")
	metrics.Init(serviceName, version, cfg.Env)

	if unknown := cfg.UnknownCategories(); len(unknown) > 0 {
		log.Warn().
			Strs("categories", unknown).
			Strs("valid_sections", cfg.ValidSections).
			Msg("Configured categories are not valid sections; top stories requests will be rejected")
	}

	// Optional upstream response cache
	var opts []nyt.Option
	if cfg.CacheEnabled() {
		respCache, err := cache.New(cfg.CacheBackend, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("Failed to initialize response cache")
		}
		defer func() {
			log.Info().Msg("Closing response cache...")
			if err := respCache.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing response cache")
			}
		}()
		opts = append(opts, nyt.WithCache(respCache, cfg.CacheTTL))
		log.Info().
			Str("backend", cfg.CacheBackend).
			Dur("ttl", cfg.CacheTTL).
			Msg("Upstream response cache enabled")
	}

	client, err := nyt.NewClient(cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize NYT client")
	}
	handlers := api.NewHandlers(news.NewService(client, cfg), version)

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Global middleware; Metrics wraps the logger so it sees the final status
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger())

	api.SetupRoutes(app, handlers)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
