package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
)

// TelemetryRecord is one latency/uptime observation for a region.
// Absent fields are nil; a record without a region never matches a query.
type TelemetryRecord struct {
	Region    *string  `json:"region,omitempty" yaml:"region,omitempty"`
	LatencyMS *float64 `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
	UptimePct *float64 `json:"uptime_pct,omitempty" yaml:"uptime_pct,omitempty"`
}

// UnmarshalJSON accepts the legacy "uptime" key when "uptime_pct" is absent.
func (r *TelemetryRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Region    *string  `json:"region"`
		LatencyMS *float64 `json:"latency_ms"`
		UptimePct *float64 `json:"uptime_pct"`
		Uptime    *float64 `json:"uptime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Region = raw.Region
	r.LatencyMS = raw.LatencyMS
	r.UptimePct = raw.UptimePct
	if r.UptimePct == nil {
		r.UptimePct = raw.Uptime
	}
	return nil
}

// Dataset is the immutable telemetry collection shared by all requests.
// It must not be modified after NewDataset returns.
type Dataset struct {
	records  []TelemetryRecord
	byRegion map[string][]TelemetryRecord
	regions  []string
	digest   string
}

// NewDataset indexes records by region, keeping dataset order within each region.
func NewDataset(records []TelemetryRecord) *Dataset {
	ds := &Dataset{
		records:  make([]TelemetryRecord, len(records)),
		byRegion: make(map[string][]TelemetryRecord),
	}
	copy(ds.records, records)

	for _, r := range ds.records {
		if r.Region == nil {
			continue
		}
		if _, seen := ds.byRegion[*r.Region]; !seen {
			ds.regions = append(ds.regions, *r.Region)
		}
		ds.byRegion[*r.Region] = append(ds.byRegion[*r.Region], r)
	}
	sort.Strings(ds.regions)
	ds.digest = fingerprint(ds.records)

	return ds
}

// Fingerprint identifies the dataset contents. Two datasets with the same
// records in the same order share a fingerprint.
func (d *Dataset) Fingerprint() string {
	if d == nil {
		return fingerprint(nil)
	}
	return d.digest
}

// fingerprint hashes records in order. Each field is written with a presence
// byte so an absent value never collides with a present zero.
func fingerprint(records []TelemetryRecord) string {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(f *float64) {
		if f == nil {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(*f))
		h.Write(buf[:])
	}
	for _, r := range records {
		if r.Region == nil {
			h.Write([]byte{0})
		} else {
			h.Write([]byte{1})
			binary.BigEndian.PutUint64(buf[:], uint64(len(*r.Region)))
			h.Write(buf[:])
			h.Write([]byte(*r.Region))
		}
		writeFloat(r.LatencyMS)
		writeFloat(r.UptimePct)
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// Rows returns the records whose region equals region exactly.
// The returned slice is shared and must be treated as read-only.
func (d *Dataset) Rows(region string) []TelemetryRecord {
	if d == nil {
		return nil
	}
	return d.byRegion[region]
}

// Regions lists distinct region names in lexical order.
func (d *Dataset) Regions() []string {
	if d == nil {
		return nil
	}
	return d.regions
}

// Len is the total number of records, including those without a region.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// LatencyRequest is a validated stats query.
type LatencyRequest struct {
	Regions     []string `json:"regions"`
	ThresholdMS float64  `json:"threshold_ms"`
}

// MetricsResult holds the computed statistics for one region.
type MetricsResult struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// LatencyReport is the response body of the latency endpoints.
type LatencyReport struct {
	Regions map[string]MetricsResult `json:"regions"`
}

// RegionSummary describes one region present in the dataset.
type RegionSummary struct {
	Region  string `json:"region"`
	Records int    `json:"records"`
}

// ReportEvent is published for every computed region that breached the threshold.
type ReportEvent struct {
	Region      string        `json:"region"`
	ThresholdMS float64       `json:"threshold_ms"`
	Metrics     MetricsResult `json:"metrics"`
	ComputedAt  int64         `json:"computed_at"` // unix millis
}
