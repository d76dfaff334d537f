package http_test

import (
	"encoding/json"
	"io"
	"math"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/regionlatency/internal/adapters/http"
	"github.com/samirrijal/regionlatency/internal/core/domain"
	"github.com/samirrijal/regionlatency/internal/core/usecases"
)

// ---- Test helpers ----

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func fixture() []domain.TelemetryRecord {
	return []domain.TelemetryRecord{
		{Region: str("us"), LatencyMS: num(100), UptimePct: num(99)},
		{Region: str("us"), LatencyMS: num(200), UptimePct: num(98)},
		{Region: str("emea"), LatencyMS: num(10)},
		{Region: str("emea"), LatencyMS: num(20)},
		{Region: str("emea"), LatencyMS: num(30)},
		{Region: str("emea"), LatencyMS: num(40)},
		{Region: str("emea"), LatencyMS: num(50), UptimePct: num(97)},
		{Region: str("apac"), UptimePct: num(50)},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler,
	})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Latency: usecases.NewLatencyService(domain.NewDataset(fixture()), nil, nil, 0),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	headers := map[string]string{}
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, readBody(t, resp.Body), headers
}

func decodeReport(t *testing.T, b []byte) domain.LatencyReport {
	t.Helper()
	var report domain.LatencyReport
	if err := json.Unmarshal(b, &report); err != nil {
		t.Fatalf("decode: %v (body %s)", err, b)
	}
	return report
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ---- Latency endpoint ----

func TestLatency_Scenario(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["us"],"threshold_ms":150}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	m, ok := decodeReport(t, body).Regions["us"]
	if !ok {
		t.Fatalf("missing region us in %s", body)
	}
	if !approx(m.AvgLatency, 150) || !approx(m.P95Latency, 195) || !approx(m.AvgUptime, 98.5) || m.Breaches != 1 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestLatency_InterpolatedPercentile(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["emea"],"threshold_ms":25}`)
	m := decodeReport(t, body).Regions["emea"]
	if !approx(m.P95Latency, 48) {
		t.Errorf("expected p95 48, got %v", m.P95Latency)
	}
	if !approx(m.AvgLatency, 30) {
		t.Errorf("expected avg 30, got %v", m.AvgLatency)
	}
	if m.AvgUptime != 97 {
		t.Errorf("expected avg_uptime 97 from the single present value, got %v", m.AvgUptime)
	}
	if m.Breaches != 3 {
		t.Errorf("expected 3 breaches, got %d", m.Breaches)
	}
}

func TestLatency_UnknownAndDuplicateRegions(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["us","us","nowhere","apac"]}`)
	report := decodeReport(t, body)
	if len(report.Regions) != 3 {
		t.Fatalf("expected 3 keys, got %d: %s", len(report.Regions), body)
	}
	if report.Regions["nowhere"] != (domain.MetricsResult{}) {
		t.Errorf("unknown region should be zero, got %+v", report.Regions["nowhere"])
	}
	if report.Regions["apac"] != (domain.MetricsResult{}) {
		t.Errorf("region without latency values should be zero, got %+v", report.Regions["apac"])
	}
}

func TestLatency_ThresholdDefaultsToZero(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["us"]}`)
	if got := decodeReport(t, body).Regions["us"].Breaches; got != 2 {
		t.Errorf("expected 2 breaches at threshold 0, got %d", got)
	}

	_, body, _ = postJSON(t, app, "/v1/latency", `{"regions":["us"],"threshold_ms":null}`)
	if got := decodeReport(t, body).Regions["us"].Breaches; got != 2 {
		t.Errorf("expected null threshold to act as 0, got %d breaches", got)
	}
}

func TestLatency_EmptyRegions(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := postJSON(t, app, "/v1/latency", `{"regions":[]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if string(body) != `{"regions":{}}` {
		t.Errorf("expected empty mapping, got %s", body)
	}
}

func TestLatency_ResponseShape(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["us"],"threshold_ms":150}`)

	var raw map[string]map[string]map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	us := raw["regions"]["us"]
	for _, key := range []string{"avg_latency", "p95_latency", "avg_uptime", "breaches"} {
		if _, ok := us[key]; !ok {
			t.Errorf("missing key %q in %s", key, body)
		}
	}
}

func TestLatency_BadRequests(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		"empty body":         ``,
		"invalid json":       `{"regions":`,
		"not an object":      `["us"]`,
		"missing regions":    `{"threshold_ms": 10}`,
		"null regions":       `{"regions": null}`,
		"regions not list":   `{"regions": "us"}`,
		"non-string region":  `{"regions": ["us", 5]}`,
		"null region":        `{"regions": ["us", null]}`,
		"string threshold":   `{"regions": ["us"], "threshold_ms": "150"}`,
		"boolean threshold":  `{"regions": ["us"], "threshold_ms": true}`,
		"object as regions":  `{"regions": {"us": 1}}`,
		"object as threshld": `{"regions": ["us"], "threshold_ms": {}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, resp, _ := postJSON(t, app, "/v1/latency", body)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, resp)
			}
			var apiErr handler.APIError
			if err := json.Unmarshal(resp, &apiErr); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if apiErr.Code != "bad_request" || apiErr.Message == "" {
				t.Errorf("unexpected error body: %+v", apiErr)
			}
			if apiErr.RequestID == "" {
				t.Error("expected request_id in error body")
			}
		})
	}
}

func TestLatency_ErrorMessages(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		`{"threshold_ms": 1}`:                    "regions is required",
		`{"regions": [1]}`:                       "regions must be an array of strings",
		`{"regions": [], "threshold_ms": "abc"}`: "threshold_ms must be a number",
	}
	for body, want := range cases {
		_, resp, _ := postJSON(t, app, "/v1/latency", body)
		var apiErr handler.APIError
		_ = json.Unmarshal(resp, &apiErr)
		if apiErr.Message != want {
			t.Errorf("%s: expected %q, got %q", body, want, apiErr.Message)
		}
	}
}

func TestLatency_Aliases(t *testing.T) {
	app := setupApp(makeDeps())

	for _, path := range []string{"/latency", "/"} {
		status, body, _ := postJSON(t, app, path, `{"regions":["us"],"threshold_ms":150}`)
		if status != 200 {
			t.Fatalf("%s: expected 200, got %d", path, status)
		}
		if m := decodeReport(t, body).Regions["us"]; m.Breaches != 1 {
			t.Errorf("%s: unexpected metrics %+v", path, m)
		}
	}
}

func TestLatency_RootIsDeprecated(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := postJSON(t, app, "/", `{"regions":[]}`)
	if headers["Deprecation"] != "true" {
		t.Errorf("expected Deprecation header, got %q", headers["Deprecation"])
	}
	if !strings.Contains(headers["Link"], "/v1/latency") {
		t.Errorf("expected successor link, got %q", headers["Link"])
	}

	_, _, headers = postJSON(t, app, "/v1/latency", `{"regions":[]}`)
	if headers["Deprecation"] != "" {
		t.Error("versioned endpoint must not be marked deprecated")
	}
}

func TestLatency_EmptyDataset(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Latency = usecases.NewLatencyService(domain.NewDataset(nil), nil, nil, 0)
	}))

	_, body, _ := postJSON(t, app, "/v1/latency", `{"regions":["us"],"threshold_ms":1}`)
	if m := decodeReport(t, body).Regions["us"]; m != (domain.MetricsResult{}) {
		t.Errorf("expected zero metrics on empty dataset, got %+v", m)
	}
}

// ---- CORS ----

func TestCORS_HeadersOnPost(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := postJSON(t, app, "/v1/latency", `{"regions":["us"]}`)
	want := map[string]string{
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Methods":  "POST, GET, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, Authorization",
		"Access-Control-Expose-Headers": "Access-Control-Allow-Origin",
	}
	for k, v := range want {
		if headers[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, headers[k])
		}
	}
}

func TestCORS_HeadersOnError(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, headers := postJSON(t, app, "/v1/latency", `nope`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if headers["Access-Control-Allow-Origin"] != "*" {
		t.Errorf("expected CORS header on error response, got %q", headers["Access-Control-Allow-Origin"])
	}
}

func TestCORS_Preflight(t *testing.T) {
	app := setupApp(makeDeps())

	for _, path := range []string{"/", "/v1/latency", "/anything/at/all"} {
		req := httptest.NewRequest("OPTIONS", path, nil)
		req.Header.Set("Origin", "https://example.com")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "POST, GET, OPTIONS" {
			t.Errorf("%s: unexpected allow-methods %q", path, got)
		}
	}
}

// ---- Regions ----

func TestListRegions(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/regions", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.RegionSummary `json:"data"`
		Pagination handler.Pagination     `json:"pagination"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Pagination.Total != 3 || len(result.Data) != 3 {
		t.Fatalf("expected 3 regions, got %+v", result)
	}
	if result.Data[0].Region != "apac" || result.Data[1].Region != "emea" || result.Data[1].Records != 5 {
		t.Errorf("unexpected regions: %+v", result.Data)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("expected ETag header")
	}
}

func TestListRegions_Pagination(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/regions?offset=1&limit=1", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result struct {
		Data []domain.RegionSummary `json:"data"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].Region != "emea" {
		t.Errorf("unexpected page: %+v", result.Data)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header missing %s: %s", rel, link)
		}
	}
}

func TestListRegions_OffsetPastEnd(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/regions?offset=50", nil)
	resp, _ := app.Test(req, -1)
	body := readBody(t, resp.Body)
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

func TestListRegions_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/regions", nil), -1)
	etag := resp.Header.Get("ETag")

	req := httptest.NewRequest("GET", "/v1/regions", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.Version = "1.2.3" }))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]string
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["status"] != "healthy" || result["version"] != "1.2.3" {
		t.Errorf("unexpected health body: %+v", result)
	}
}

func TestReady(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Status         string            `json:"status"`
		Checks         map[string]string `json:"checks"`
		DatasetRecords int               `json:"dataset_records"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := len(fixture())
	if result.DatasetRecords != want {
		t.Errorf("expected dataset_records %d, got %d", want, result.DatasetRecords)
	}
	if result.Checks["dataset"] != strconv.Itoa(want)+" records" || result.Checks["cache"] != "not configured" {
		t.Errorf("unexpected checks: %+v", result.Checks)
	}
}

func TestReady_NoDataset(t *testing.T) {
	app := setupApp(&handler.Dependencies{})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Misc ----

func TestUnknownRoute(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/nope", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %q", apiErr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}
}

func TestDocsPage(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %q", ct)
	}
	if body := string(readBody(t, resp.Body)); !strings.Contains(body, "/docs/openapi.yaml") {
		t.Error("docs page does not reference the OpenAPI document")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, _ = postJSON(t, app, "/v1/latency", `{"regions":["us"],"threshold_ms":150}`)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body := string(readBody(t, resp.Body))
	if !strings.Contains(body, "regionlatency_stats_regions_computed_total") {
		t.Error("expected stats counter in /metrics output")
	}
}
