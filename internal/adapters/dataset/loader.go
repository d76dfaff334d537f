package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/regionlatency/internal/core/domain"
)

// yamlRecord mirrors domain.TelemetryRecord, including the legacy uptime key.
type yamlRecord struct {
	Region    *string  `yaml:"region"`
	LatencyMS *float64 `yaml:"latency_ms"`
	UptimePct *float64 `yaml:"uptime_pct"`
	Uptime    *float64 `yaml:"uptime"`
}

// LoadFile reads telemetry records from a JSON array, or a YAML sequence when
// the file has a .yaml/.yml extension. Records keep file order.
func LoadFile(path string) ([]domain.TelemetryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON array of telemetry objects.
func ParseJSON(data []byte) ([]domain.TelemetryRecord, error) {
	var records []domain.TelemetryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset json: %w", err)
	}
	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

// ParseYAML decodes a YAML sequence of telemetry mappings.
func ParseYAML(data []byte) ([]domain.TelemetryRecord, error) {
	var raw []yamlRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dataset yaml: %w", err)
	}

	records := make([]domain.TelemetryRecord, 0, len(raw))
	for _, r := range raw {
		rec := domain.TelemetryRecord{Region: r.Region, LatencyMS: r.LatencyMS, UptimePct: r.UptimePct}
		if rec.UptimePct == nil {
			rec.UptimePct = r.Uptime
		}
		records = append(records, rec)
	}
	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Validate rejects NaN and infinite measurements, which cannot be averaged or
// encoded in a JSON response.
func Validate(records []domain.TelemetryRecord) error {
	for i, r := range records {
		if r.LatencyMS != nil && !finite(*r.LatencyMS) {
			return fmt.Errorf("record %d: latency_ms is not a finite number (%v)", i, *r.LatencyMS)
		}
		if r.UptimePct != nil && !finite(*r.UptimePct) {
			return fmt.Errorf("record %d: uptime_pct is not a finite number (%v)", i, *r.UptimePct)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
