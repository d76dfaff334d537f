package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/samirrijal/regionlatency/internal/pkg/metrics"
)

const (
	defaultRateLimit = 600
	requestTimeout   = 15 * time.Second
)

// rootSunset is when the unversioned POST / alias is removed.
var rootSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers the REST, GraphQL, docs and health routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP
	rateLimit := deps.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// CORS headers on every response, and 200 for any preflight
	app.Use(CORSHeadersMiddleware(deps.AllowOrigin))
	app.Options("/*", PreflightHandler(deps.AllowOrigin))

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Latency statistics
	latency := LatencyHandler(deps)
	v1 := app.Group("/v1")
	v1.Post("/latency", timeout.NewWithContext(latency, requestTimeout))
	v1.Get("/regions", timeout.NewWithContext(ListRegionsHandler(deps), requestTimeout))

	// Unversioned aliases kept for existing clients
	app.Post("/latency", timeout.NewWithContext(latency, requestTimeout))
	app.Post("/", DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/", SunsetDate: rootSunset, Alternative: "/v1/latency"},
	}), timeout.NewWithContext(latency, requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)
}
