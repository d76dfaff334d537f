package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Engine
	MetricRegionsPerRequest = "stats.regions_per_request"
	MetricBreaches          = "stats.breaches"
)

// Span attribute keys.
const (
	AttrRegionCount = "latency.region_count"
	AttrThresholdMS = "latency.threshold_ms"
	AttrBreaches    = "latency.breaches"
)
