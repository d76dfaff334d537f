package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/regionlatency/internal/core/domain"
)

const insertBatchSize = 500

// TelemetryRepo implements ports.TelemetryRepository.
type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// LoadAll returns every telemetry row in insertion order. NULL columns map to
// absent fields.
func (r *TelemetryRepo) LoadAll(ctx context.Context) ([]domain.TelemetryRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT region, latency_ms, uptime_pct
		FROM telemetry ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var records []domain.TelemetryRecord
	for rows.Next() {
		var rec domain.TelemetryRecord
		if err := rows.Scan(&rec.Region, &rec.LatencyMS, &rec.UptimePct); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertBatch appends records, preserving their order, in batches of 500.
func (r *TelemetryRepo) InsertBatch(ctx context.Context, records []domain.TelemetryRecord) error {
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			batch.Queue(`
				INSERT INTO telemetry (region, latency_ms, uptime_pct)
				VALUES ($1, $2, $3)
			`, rec.Region, rec.LatencyMS, rec.UptimePct)
		}

		if err := r.flush(ctx, batch, end-start); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Truncate removes every telemetry row.
func (r *TelemetryRepo) Truncate(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `TRUNCATE telemetry RESTART IDENTITY`)
	return err
}

func (r *TelemetryRepo) flush(ctx context.Context, batch *pgx.Batch, count int) error {
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return nil
}
