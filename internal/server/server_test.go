package server

import (
	"bytes"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/iwvelando/hoa-forecast/pkg/optimization"
	"github.com/iwvelando/hoa-forecast/pkg/projection"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const roofConfigYAML = `
association:
  homes: 10
  startYear: 2026
  horizonYears: 3
  operatingBudget:
    - {category: Operations, annualAmount: 120000}
  capitalProjects:
    - {year: 2027, name: Roof, cost: 100000}
scenarios:
  - name: Steady
    active: true
    operatingInflation: 0
    dues: {starting: 1000, increasePercent: 0}
    reserve: {startBalance: 0, earningsPercent: 0, contributionMode: fixed-annual, contributionValue: 50000}
    fullyFunded: {startBalance: 100000, growthPercent: 0}
  - name: Parked
    active: false
`

// decodedResponse mirrors forecastResponse for the fields the tests inspect.
type decodedResponse struct {
	RunID     string   `json:"runId"`
	Scenarios []string `json:"scenarios"`
	Results   []struct {
		Name          string                        `json:"name"`
		Rows          []projection.YearlyProjection `json:"rows"`
		Summary       projection.Summary            `json:"summary"`
		Optimizations []optimization.Summary        `json:"optimizations"`
	} `json:"results"`
	CSV        string                 `json:"csv"`
	Warnings   []string               `json:"warnings"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config"`
	ConfigYAML string                 `json:"configYaml"`
}

func newTestHandler() http.Handler {
	return NewHandler(zap.NewNop(), DefaultConfig(), "1.2.3")
}

func TestHandleForecastSuccess(t *testing.T) {
	rr := performUpload(t, newTestHandler(), roofConfigYAML, "config.yaml")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeForecast(t, rr)
	if _, err := uuid.Parse(resp.RunID); err != nil {
		t.Fatalf("expected a UUID run id, got %q", resp.RunID)
	}
	if len(resp.Scenarios) != 1 || resp.Scenarios[0] != "Steady" {
		t.Fatalf("expected only the active scenario, got %v", resp.Scenarios)
	}
	if len(resp.Results) != 1 || len(resp.Results[0].Rows) != 3 {
		t.Fatalf("expected one result with three rows, got %+v", resp.Results)
	}
	first := resp.Results[0].Rows[0]
	if first.Year != 2026 || math.Abs(first.ReserveEnding-50000) > 0.01 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !strings.HasPrefix(resp.CSV, "Scenario,Year") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandleForecastEditorSuccess(t *testing.T) {
	var configPayload map[string]interface{}
	if err := yaml.Unmarshal([]byte(roofConfigYAML), &configPayload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}

	rr := performEditorJSON(t, newTestHandler(), map[string]interface{}{"config": configPayload}, "/api/editor/forecast")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeForecast(t, rr)
	if len(resp.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(resp.Results))
	}
	if len(resp.Results[0].Optimizations) != 0 {
		t.Fatalf("expected no optimizations, got %+v", resp.Results[0].Optimizations)
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
}

func TestHandleForecastEditorOptimize(t *testing.T) {
	var configPayload map[string]interface{}
	if err := yaml.Unmarshal([]byte(roofConfigYAML), &configPayload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}
	scenarios := configPayload["scenarios"].([]interface{})
	steady := scenarios[0].(map[string]interface{})
	steady["reserve"].(map[string]interface{})["contributionValue"] = 1000
	steady["optimizer"] = map[string]interface{}{
		"field":  "reserveContribution",
		"kind":   "reserve_floor",
		"target": 0,
		"min":    0,
		"max":    200000,
	}

	payload := map[string]interface{}{
		"config":  configPayload,
		"options": map[string]interface{}{"optimize": "true"},
	}
	rr := performEditorJSON(t, newTestHandler(), payload, "/api/editor/forecast")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodeForecast(t, rr)
	if len(resp.Results) != 1 || len(resp.Results[0].Optimizations) != 1 {
		t.Fatalf("expected one optimization summary, got %+v", resp.Results)
	}
	summary := resp.Results[0].Optimizations[0]
	if math.Abs(summary.Value-50000) > 0.02 {
		t.Fatalf("expected contribution near 50000, got %f", summary.Value)
	}
	if summary.Original != 1000 {
		t.Fatalf("expected original contribution 1000, got %f", summary.Original)
	}
	if !strings.Contains(resp.ConfigYAML, "contributionValue: 50000") {
		t.Fatalf("expected optimized contribution in config YAML, got %q", resp.ConfigYAML)
	}
}

const frozenDuesConfigYAML = `
association:
  homes: 10
  startYear: 2026
  horizonYears: 3
  operatingBudget:
    - {category: Operations, annualAmount: 120000}
  capitalProjects:
    - {year: 2027, name: Roof, cost: 100000}
scenarios:
  - name: Frozen
    active: true
    dues: {starting: 1000, increasePercent: 10, increaseYears: []}
    reserve: {startBalance: 0, earningsPercent: 0, contributionMode: fixed-annual, contributionValue: 1000}
    fullyFunded: {startBalance: 100000, growthPercent: 0}
    optimizer: {field: reserveContribution, kind: reserve_floor, target: 0, min: 0, max: 200000}
`

func TestHandleForecastConfigYAMLRoundTrip(t *testing.T) {
	handler := newTestHandler()

	first := performUpload(t, handler, frozenDuesConfigYAML, "config.yaml")
	if first.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", first.Code, first.Body.String())
	}
	firstResp := decodeForecast(t, first)

	second := performUpload(t, handler, firstResp.ConfigYAML, "config.yaml")
	if second.Code != http.StatusOK {
		t.Fatalf("expected status 200 on re-upload, got %d: %s", second.Code, second.Body.String())
	}
	secondResp := decodeForecast(t, second)

	if len(firstResp.Results) != 1 || len(secondResp.Results) != 1 {
		t.Fatalf("expected one result per run, got %d and %d", len(firstResp.Results), len(secondResp.Results))
	}
	firstRows := firstResp.Results[0].Rows
	secondRows := secondResp.Results[0].Rows
	if len(firstRows) != 3 || len(secondRows) != 3 {
		t.Fatalf("expected three rows per run, got %d and %d", len(firstRows), len(secondRows))
	}
	for i := range firstRows {
		if firstRows[i].MonthlyDuesPerHome != 1000 {
			t.Errorf("%d: expected frozen dues of 1000, got %.2f", firstRows[i].Year, firstRows[i].MonthlyDuesPerHome)
		}
		if secondRows[i].MonthlyDuesPerHome != firstRows[i].MonthlyDuesPerHome {
			t.Errorf("%d: re-uploaded dues %.2f differ from %.2f", secondRows[i].Year,
				secondRows[i].MonthlyDuesPerHome, firstRows[i].MonthlyDuesPerHome)
		}
		if math.Abs(secondRows[i].ReserveEnding-firstRows[i].ReserveEnding) > 0.01 {
			t.Errorf("%d: re-uploaded reserve %.2f differs from %.2f", secondRows[i].Year,
				secondRows[i].ReserveEnding, firstRows[i].ReserveEnding)
		}
	}
	if !strings.Contains(firstResp.ConfigYAML, "increaseYears: []") {
		t.Errorf("expected the empty increase schedule in config YAML, got %q", firstResp.ConfigYAML)
	}
}

func TestHandleConfigExport(t *testing.T) {
	payload := map[string]interface{}{
		"scenarios": []interface{}{
			map[string]interface{}{
				"name":   "sample",
				"active": true,
			},
		},
		"association": map[string]interface{}{
			"homes":     420,
			"startYear": 2026,
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
		"extra": true,
	}

	rr := performEditorJSON(t, newTestHandler(), payload, "/api/editor/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	yamlStr := resp["configYaml"]
	if yamlStr == "" {
		t.Fatal("expected configYaml in response")
	}

	var topLevel []string
	for _, line := range strings.Split(strings.TrimRight(yamlStr, "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		topLevel = append(topLevel, strings.SplitN(line, ":", 2)[0])
	}

	expected := []string{"logging", "output", "association", "scenarios", "extra"}
	if strings.Join(topLevel, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected top-level keys %v, got %v", expected, topLevel)
	}
}

func TestHandleForecastMethodNotAllowed(t *testing.T) {
	handler := newTestHandler()

	for _, path := range []string{"/api/forecast", "/api/editor/forecast", "/api/editor/export"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected status 405, got %d", path, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/presets", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("/api/presets: expected status 405, got %d", rr.Code)
	}
}

func TestHandleForecastUploadTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetUploadSizeBytes(64)
	handler := NewHandler(zap.NewNop(), cfg, "")

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	resp := decodeError(t, rr)
	if !strings.Contains(resp, "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp)
	}
}

func TestHandleForecastMissingFile(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "missing configuration file" {
		t.Fatalf("expected missing file error, got %q", msg)
	}
}

func TestHandleForecastRejected(t *testing.T) {
	testCases := []struct {
		name     string
		config   string
		contains string
	}{
		{
			name:     "invalid yaml",
			config:   "association: [",
			contains: "error reading config data",
		},
		{
			name: "table files",
			config: `
association:
  operatingBudgetFile: /etc/budget.csv
scenarios:
  - name: sample
    active: true
`,
			contains: "table files are not allowed",
		},
		{
			name: "unknown contribution mode",
			config: `
scenarios:
  - name: sample
    active: true
    reserve: {contributionMode: weekly}
`,
			contains: "unknown reserve contribution mode",
		},
		{
			name: "invalid optimizer",
			config: `
scenarios:
  - name: sample
    active: true
    optimizer: {field: startingDues, kind: reserve_floor, min: 0, max: 10}
`,
			contains: "optimizer execution failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := performUpload(t, newTestHandler(), tc.config, "config.yaml")

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if msg := decodeError(t, rr); !strings.Contains(msg, tc.contains) {
				t.Fatalf("expected error containing %q, got %q", tc.contains, msg)
			}
		})
	}
}

func TestHandleForecastMissingTableFileAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowTableFiles = true
	handler := NewHandler(zap.NewNop(), cfg, "")

	configYAML := `
association:
  capitalProjectsFile: does-not-exist.csv
scenarios:
  - name: sample
    active: true
`
	rr := performUpload(t, handler, configYAML, "config.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if msg := decodeError(t, rr); !strings.Contains(msg, "failed to load tables") {
		t.Fatalf("expected table load error, got %q", msg)
	}
}

func TestHandlePresets(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	rr := httptest.NewRecorder()
	newTestHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Presets []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"presets"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Presets) != 4 || resp.Presets[1].Name != "catch-up" {
		t.Fatalf("unexpected presets: %+v", resp.Presets)
	}
}

func TestHandleVersion(t *testing.T) {
	testCases := map[string]string{"1.2.3": "1.2.3", "  ": "dev"}

	for version, expected := range testCases {
		handler := NewHandler(nil, nil, version)
		req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["version"] != expected {
			t.Fatalf("expected version %q, got %q", expected, resp["version"])
		}
	}
}

func TestNewServerUsesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	srv := NewServer(zap.NewNop(), cfg, "")

	if srv.Addr != "127.0.0.1:0" {
		t.Fatalf("expected address from config, got %q", srv.Addr)
	}
	if srv.ReadTimeout != cfg.ReadTimeoutDuration() || srv.WriteTimeout != cfg.WriteTimeoutDuration() {
		t.Fatalf("expected timeouts from config, got %s/%s", srv.ReadTimeout, srv.WriteTimeout)
	}
}

func TestCoerceBool(t *testing.T) {
	testCases := []struct {
		input    interface{}
		expected bool
	}{
		{true, true},
		{"yes", false},
		{"1", true},
		{" ", false},
		{1.0, true},
		{0, false},
		{json.Number("2"), true},
		{nil, false},
	}

	for _, tc := range testCases {
		if actual := coerceBool(tc.input); actual != tc.expected {
			t.Fatalf("coerceBool(%#v) = %t, expected %t", tc.input, actual, tc.expected)
		}
	}
}

func decodeForecast(t *testing.T, rr *httptest.ResponseRecorder) decodedResponse {
	t.Helper()

	var resp decodedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp["error"]
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performEditorJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
