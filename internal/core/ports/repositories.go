package ports

import (
	"context"

	"github.com/samirrijal/regionlatency/internal/core/domain"
)

// TelemetryRepository is a persistent telemetry source.
// It is read once at startup; the service never writes through it.
type TelemetryRepository interface {
	LoadAll(ctx context.Context) ([]domain.TelemetryRecord, error)
	InsertBatch(ctx context.Context, records []domain.TelemetryRecord) error
	Truncate(ctx context.Context) error
}
