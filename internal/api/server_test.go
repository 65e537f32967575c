package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyberzilla/urlsentinel/internal/cache"
	"github.com/cyberzilla/urlsentinel/internal/config"
	"github.com/cyberzilla/urlsentinel/internal/mlpredictor"
	"github.com/cyberzilla/urlsentinel/internal/netprobe"
	"github.com/cyberzilla/urlsentinel/internal/normalize"
	"github.com/cyberzilla/urlsentinel/internal/orchestrator"
	"github.com/cyberzilla/urlsentinel/internal/psl"
	"github.com/cyberzilla/urlsentinel/internal/reputation"
	"github.com/cyberzilla/urlsentinel/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	suffixes := psl.New()
	model, err := mlpredictor.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Security.RateLimitPerMin = 1000

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.OverallBudget = 2 * time.Second
	orchCfg.WhoisEnabled = false

	orch := orchestrator.New(
		orchCfg,
		normalize.New(suffixes),
		netprobe.New(netprobe.DefaultBudgets(), suffixes),
		reputation.Default(false),
		model,
		cache.NewMemoryStore(128, time.Minute),
		nil,
	)

	return NewServer(orch, nil, logger.NewLogger(), cfg)
}

func TestHealthHandler(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.healthHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Errorf("failed to unmarshal response: %v", err)
	}
	if response["status"] != "up" {
		t.Errorf("expected status up, got %v", response["status"])
	}
}

func TestScanHandlerMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/scan", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.scanHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusMethodNotAllowed {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusMethodNotAllowed)
	}
}

func TestScanHandlerInvalidJSON(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/scan", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.scanHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnprocessableEntity {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnprocessableEntity)
	}

	var body map[string][]map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal error envelope: %v", err)
	}
	if len(body["detail"]) == 0 || body["detail"][0]["msg"] == "" {
		t.Errorf("expected a detail[0].msg entry, got %v", body)
	}
}

func TestScanHandlerSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	server := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"url": upstream.URL})
	req := httptest.NewRequest("POST", "/api/v1/scan", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.scanHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v, body=%s", status, http.StatusOK, rr.Body.String())
	}

	var resp scanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status == "" {
		t.Errorf("expected a non-empty status")
	}
}
