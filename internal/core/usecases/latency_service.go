package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/regionlatency/internal/core/domain"
	"github.com/samirrijal/regionlatency/internal/core/ports"
	"github.com/samirrijal/regionlatency/internal/pkg/metrics"
	"github.com/samirrijal/regionlatency/internal/pkg/stats"
	"github.com/samirrijal/regionlatency/internal/pkg/telemetry"
)

const p95 = 95

// DefaultCacheTTL is used when the service is built with a non-positive TTL.
const DefaultCacheTTL = 300

// LatencyService computes per-region latency statistics over a fixed dataset.
type LatencyService struct {
	dataset  *domain.Dataset
	cache    ports.CacheService
	events   ports.EventPublisher
	cacheTTL int
}

// NewLatencyService creates a new LatencyService. cache and events may be nil.
func NewLatencyService(dataset *domain.Dataset, cache ports.CacheService, events ports.EventPublisher, cacheTTL int) *LatencyService {
	if dataset == nil {
		dataset = domain.NewDataset(nil)
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	metrics.SetDataset(dataset.Len(), len(dataset.Regions()))
	return &LatencyService{dataset: dataset, cache: cache, events: events, cacheTTL: cacheTTL}
}

// Compute returns metrics for every requested region. Duplicate regions
// collapse to a single key; unknown regions get zero metrics.
func (s *LatencyService) Compute(ctx context.Context, req domain.LatencyRequest) map[string]domain.MetricsResult {
	ctx, span := telemetry.Tracer().Start(ctx, "LatencyService.Compute")
	defer span.End()

	start := time.Now()
	results := make(map[string]domain.MetricsResult, len(req.Regions))
	breaches := 0

	for _, region := range req.Regions {
		if _, done := results[region]; done {
			continue
		}

		m, cached := s.cached(ctx, region, req.ThresholdMS)
		if !cached {
			m = ComputeRegion(s.dataset.Rows(region), req.ThresholdMS)
			s.store(ctx, region, req.ThresholdMS, m)
		}
		results[region] = m
		breaches += m.Breaches

		known := strconv.FormatBool(len(s.dataset.Rows(region)) > 0)
		metrics.RegionsComputed.WithLabelValues(known).Inc()

		if m.Breaches > 0 {
			s.publish(ctx, region, req.ThresholdMS, m)
		}
	}

	metrics.BreachesDetected.Add(float64(breaches))
	metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int(telemetry.AttrRegionCount, len(results)),
		attribute.Float64(telemetry.AttrThresholdMS, req.ThresholdMS),
		attribute.Int(telemetry.AttrBreaches, breaches),
	)

	return results
}

// Regions lists the regions present in the dataset with their record counts.
func (s *LatencyService) Regions(ctx context.Context) []domain.RegionSummary {
	names := s.dataset.Regions()
	out := make([]domain.RegionSummary, 0, len(names))
	for _, name := range names {
		out = append(out, domain.RegionSummary{Region: name, Records: len(s.dataset.Rows(name))})
	}
	return out
}

// DatasetSize is the number of records loaded at startup.
func (s *LatencyService) DatasetSize() int {
	return s.dataset.Len()
}

// ComputeRegion derives the metrics for one region's rows. Rows missing
// latency_ms or uptime_pct are skipped for that field, never zero-filled.
func ComputeRegion(rows []domain.TelemetryRecord, thresholdMS float64) domain.MetricsResult {
	latencies := make([]float64, 0, len(rows))
	uptimes := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.LatencyMS != nil {
			latencies = append(latencies, *r.LatencyMS)
		}
		if r.UptimePct != nil {
			uptimes = append(uptimes, *r.UptimePct)
		}
	}

	if len(latencies) == 0 {
		return domain.MetricsResult{}
	}

	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	// p is a constant inside [0, 100].
	p, _ := stats.Percentile(sorted, p95)

	return domain.MetricsResult{
		AvgLatency: stats.Mean(latencies),
		P95Latency: p,
		AvgUptime:  stats.Mean(uptimes),
		Breaches:   stats.CountAbove(latencies, thresholdMS),
	}
}

// cacheKey is scoped to the dataset fingerprint.
func (s *LatencyService) cacheKey(region string, thresholdMS float64) string {
	return "latency:" + s.dataset.Fingerprint() + ":" + region + ":" + strconv.FormatFloat(thresholdMS, 'g', -1, 64)
}

func (s *LatencyService) cached(ctx context.Context, region string, thresholdMS float64) (domain.MetricsResult, bool) {
	var m domain.MetricsResult
	if s.cache == nil {
		return m, false
	}
	data, err := s.cache.Get(ctx, s.cacheKey(region, thresholdMS))
	if err != nil {
		metrics.CacheMisses.Inc()
		return m, false
	}
	if err := json.Unmarshal(data, &m); err != nil {
		metrics.CacheMisses.Inc()
		return m, false
	}
	metrics.CacheHits.Inc()
	return m, true
}

func (s *LatencyService) store(ctx context.Context, region string, thresholdMS float64, m domain.MetricsResult) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(m); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(region, thresholdMS), data, s.cacheTTL)
	}
}

func (s *LatencyService) publish(ctx context.Context, region string, thresholdMS float64, m domain.MetricsResult) {
	if s.events == nil {
		return
	}
	event := &domain.ReportEvent{
		Region:      region,
		ThresholdMS: thresholdMS,
		Metrics:     m,
		ComputedAt:  time.Now().UnixMilli(),
	}
	if err := s.events.PublishReport(ctx, event); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "publish report failed", "region", region, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}
