package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parttrace/kicadbridge/internal/config"
	"github.com/parttrace/kicadbridge/internal/core"
	_ "github.com/parttrace/kicadbridge/internal/core/settings" // register real setting definitions
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			ExternalURL:    "http://bridge.example.com",
			RequestTimeout: 30 * time.Second,
		},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
	}
}

// newTestServer builds a server around a service without a database.
// Only routes that fail before touching storage are exercised here.
func newTestServer(cfg *config.Config) *Server {
	svc := core.NewService(nil, core.NewSettingsService(nil), core.ServiceConfig{
		BaseURL:       cfg.Server.ExternalURL,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		QueueWait:     cfg.Import.MaxWaitTime,
	})
	return NewServer(cfg, Deps{Service: svc})
}

func doRequest(t *testing.T, s *Server, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

func decodeErrorResponse(t *testing.T, body string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal error response %q: %v", body, err)
	}
	return resp
}

func TestIndexEndpoint(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var index struct {
		Categories string `json:"categories"`
		Parts      string `json:"parts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &index); err != nil {
		t.Fatalf("unmarshal index: %v", err)
	}

	if want := "http://bridge.example.com/v1/categories.json"; index.Categories != want {
		t.Errorf("categories url = %q, want %q", index.Categories, want)
	}
	if want := "http://bridge.example.com/v1/parts/"; index.Parts != want {
		t.Errorf("parts url = %q, want %q", index.Parts, want)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/", nil))

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestPartDetailInvalidID(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/parts/abc.json", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", resp.Code)
	}
}

func TestProgressStreamWithoutImport(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/progress/stream", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "IMP005" {
		t.Errorf("code = %s, want IMP005", resp.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAPIKeyAuthOnRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RequireAPIKey = true
	cfg.Auth.APIKeys = []string{"kicad:sekret"}
	s := newTestServer(cfg)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusForbidden},
		{"valid key", "sekret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/", nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := doRequest(t, s, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMetricsSkipsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RequireAPIKey = true
	cfg.Auth.APIKeys = []string{"kicad:sekret"}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	s := newTestServer(cfg)

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/metrics without key = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	cfg.Rate.ImportPerMinute = 2
	s := newTestServer(cfg)

	for i := 0; i < 2; i++ {
		w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/v1/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	if !strings.Contains(w.Body.String(), "rate limit exceeded") {
		t.Errorf("body = %q, want rate limit message", w.Body.String())
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request should be denied")
	}

	// Other visitors have their own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("different ip should be allowed")
	}

	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastReset = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.allow("10.0.0.1") {
		t.Error("request after window reset should be allowed")
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"IMP001", http.StatusNoContent},
		{"IMP002", http.StatusConflict},
		{"IMP003", http.StatusTooManyRequests},
		{"IMP004", http.StatusConflict},
		{"IMP005", http.StatusNotFound},
		{"RES001", http.StatusNotFound},
		{"RATE001", http.StatusTooManyRequests},
		{"FILE001", http.StatusUnprocessableEntity},
		{"FILE004", http.StatusRequestEntityTooLarge},
		{"FILE005", http.StatusUnprocessableEntity},
		{"CFG001", http.StatusUnprocessableEntity},
		{"CFG002", http.StatusUnprocessableEntity},
		{"CFG003", http.StatusUnprocessableEntity},
		{"VAL001", http.StatusBadRequest},
		{"VAL002", http.StatusUnprocessableEntity},
		{"DB001", http.StatusServiceUnavailable},
		{"DB002", http.StatusConflict},
		{"DB003", http.StatusGatewayTimeout},
		{"DB004", http.StatusServiceUnavailable},
		{"ERR000", http.StatusInternalServerError},
		{"BOGUS", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForCode(tt.code); got != tt.want {
			t.Errorf("statusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	s := newTestServer(cfg)

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
