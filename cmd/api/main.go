package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/regionlatency/internal/adapters/dataset"
	"github.com/samirrijal/regionlatency/internal/adapters/http"
	natsadapter "github.com/samirrijal/regionlatency/internal/adapters/nats"
	"github.com/samirrijal/regionlatency/internal/adapters/postgres"
	"github.com/samirrijal/regionlatency/internal/adapters/valkey"
	"github.com/samirrijal/regionlatency/internal/core/domain"
	"github.com/samirrijal/regionlatency/internal/core/usecases"
	"github.com/samirrijal/regionlatency/internal/pkg/config"
	"github.com/samirrijal/regionlatency/internal/pkg/logging"
	"github.com/samirrijal/regionlatency/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("regionlatency-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Dataset: loaded once, fatal on failure
	var db *postgres.DB
	var records []domain.TelemetryRecord
	switch cfg.Dataset.Source {
	case config.SourcePostgres:
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()

		records, err = postgres.NewTelemetryRepo(db).LoadAll(ctx)
		if err != nil {
			log.Fatalf("load dataset from postgres: %v", err)
		}
		if err := dataset.Validate(records); err != nil {
			log.Fatalf("load dataset from postgres: %v", err)
		}
	default:
		records, err = dataset.LoadFile(cfg.Dataset.Path)
		if err != nil {
			log.Fatalf("load dataset %s: %v", cfg.Dataset.Path, err)
		}
	}
	ds := domain.NewDataset(records)
	slog.Info("dataset loaded",
		"source", cfg.Dataset.Source,
		"records", ds.Len(),
		"regions", len(ds.Regions()),
	)

	// Cache
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// NATS
	var events *natsadapter.Publisher
	if cfg.NATS.Enabled {
		events, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	// Use cases. Typed nils must not leak into the interfaces.
	cachePort, eventsPort := usecasePorts(cache, events)
	latencySvc := usecases.NewLatencyService(ds, cachePort, eventsPort, cfg.Cache.TTLSeconds)

	deps := &http.Dependencies{
		Latency:     latencySvc,
		DB:          db,
		Cache:       cache,
		Events:      events,
		RateLimit:   cfg.Server.RateLimit,
		AllowOrigin: cfg.CORS.AllowOrigins,
		Version:     version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Region Latency API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
