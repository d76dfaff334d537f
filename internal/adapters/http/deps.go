package http

import (
	natsadapter "github.com/samirrijal/regionlatency/internal/adapters/nats"
	"github.com/samirrijal/regionlatency/internal/adapters/postgres"
	"github.com/samirrijal/regionlatency/internal/adapters/valkey"
	"github.com/samirrijal/regionlatency/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Only Latency is required; the rest are reported by the readiness check
// when configured.
type Dependencies struct {
	Latency     *usecases.LatencyService
	DB          *postgres.DB
	Cache       *valkey.Cache
	Events      *natsadapter.Publisher
	RateLimit   int    // requests per minute per IP; 0 uses the default
	AllowOrigin string // Access-Control-Allow-Origin; "" means "*"
	Version     string // reported by /v1/health
}
