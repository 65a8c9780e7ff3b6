package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vg84526/airquality-analysis/internal/airquality"
	"github.com/vg84526/airquality-analysis/internal/analysis"
	httpapi "github.com/vg84526/airquality-analysis/internal/api/http"
	"github.com/vg84526/airquality-analysis/internal/config"
	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/scheduler"
	"github.com/vg84526/airquality-analysis/internal/store"
	"github.com/vg84526/airquality-analysis/internal/weather"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for all outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory result store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Outbound clients, each with its own circuit breaker.
	resolver := geo.NewResolver(httpClient, cfg.MarginKm)
	registry := airquality.NewRegistryClient(httpClient, cfg.OpenAQAPIKey)
	archive := airquality.NewArchiveClient(httpClient)
	weatherClient := weather.NewArchiveClient(httpClient)

	pipeline := airquality.NewPipeline(registry, archive, cfg.FetchConcurrency)

	// Core service orchestrating resolver, pipeline, weather and store.
	service := analysis.NewService(resolver, pipeline, weatherClient, memStore)

	// Scheduler that periodically analyzes the configured locations.
	sched := scheduler.New(cfg.Locations, cfg.Parameters, cfg.AnalysisWindowDays, cfg.AnalysisInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "airquality-analysis",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          15 * time.Minute, // synchronous analysis runs can be long
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "airquality-analysis",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
