package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"github.com/samirrijal/regionlatency/internal/adapters/dataset"
	"github.com/samirrijal/regionlatency/internal/adapters/postgres"
	"github.com/samirrijal/regionlatency/internal/pkg/config"
	"github.com/samirrijal/regionlatency/internal/pkg/logging"
)

// ingestor seeds the telemetry table from a dataset file so the API can run
// with dataset.source=postgres.
func main() {
	cfg, err := config.Load("regionlatency-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	path := flag.String("file", cfg.Dataset.Path, "dataset file (.json, .yaml)")
	replace := flag.Bool("replace", false, "truncate the telemetry table before inserting")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	records, err := dataset.LoadFile(*path)
	if err != nil {
		log.Fatalf("load %s: %v", *path, err)
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	repo := postgres.NewTelemetryRepo(db)

	if *replace {
		if err := repo.Truncate(ctx); err != nil {
			log.Fatalf("truncate: %v", err)
		}
		slog.Info("telemetry table truncated")
	}

	start := time.Now()
	if err := repo.InsertBatch(ctx, records); err != nil {
		log.Fatalf("insert: %v", err)
	}

	slog.Info("ingestion complete",
		"file", *path,
		"records", len(records),
		"duration", time.Since(start).String(),
	)
}
