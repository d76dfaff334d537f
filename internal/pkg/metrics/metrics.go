package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "regionlatency",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "regionlatency",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Stats engine metrics. Region names come from request bodies, so they are
	// never used as label values.
	RegionsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "stats",
		Name:      "regions_computed_total",
		Help:      "Total per-region metric computations",
	}, []string{"known"})

	BreachesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "stats",
		Name:      "breaches_detected_total",
		Help:      "Total latency samples found above the requested threshold",
	})

	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "regionlatency",
		Subsystem: "stats",
		Name:      "compute_duration_seconds",
		Help:      "Duration of a full latency report computation",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	DatasetRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "regionlatency",
		Subsystem: "dataset",
		Name:      "records",
		Help:      "Telemetry records loaded at startup",
	})

	DatasetRegions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "regionlatency",
		Subsystem: "dataset",
		Name:      "regions",
		Help:      "Distinct regions in the loaded dataset",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionlatency",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Report events handed to the broker",
	}, []string{"result"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// SetDataset publishes the size of the loaded dataset.
func SetDataset(records, regions int) {
	DatasetRecords.Set(float64(records))
	DatasetRegions.Set(float64(regions))
}
