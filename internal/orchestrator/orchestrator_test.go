package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyberzilla/urlsentinel/internal/cache"
	"github.com/cyberzilla/urlsentinel/internal/mlpredictor"
	"github.com/cyberzilla/urlsentinel/internal/netprobe"
	"github.com/cyberzilla/urlsentinel/internal/normalize"
	"github.com/cyberzilla/urlsentinel/internal/psl"
	"github.com/cyberzilla/urlsentinel/internal/reputation"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	suffixes := psl.New()
	model, err := mlpredictor.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := DefaultConfig()
	cfg.OverallBudget = 2 * time.Second
	cfg.WhoisEnabled = false

	return New(
		cfg,
		normalize.New(suffixes),
		netprobe.New(netprobe.DefaultBudgets(), suffixes),
		reputation.Default(false),
		model,
		cache.NewMemoryStore(128, time.Minute),
		nil,
	)
}

func TestScanReturnsResultForReachableURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t)
	result, err := o.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.AnalysisMS == nil {
		t.Errorf("expected AnalysisMS to be set")
	}
}

func TestScanRejectsMalformedInput(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Scan(context.Background(), "")
	if err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestScanServesFromCacheOnSecondCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t)
	first, err := o.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := o.Scan(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if *second.AnalysisMS != *first.AnalysisMS {
		t.Errorf("expected cached result to be returned byte-identical, timings differ: %v vs %v", *first.AnalysisMS, *second.AnalysisMS)
	}
}

func TestScanHandlesUnreachableHostGracefully(t *testing.T) {
	o := newTestOrchestrator(t)
	result, err := o.Scan(context.Background(), "https://this-host-does-not-resolve.invalid/")
	if err != nil {
		t.Fatalf("expected a degraded result, not an error: %v", err)
	}
	if result.Status == "" {
		t.Errorf("expected a status to be assigned even when network probing fails")
	}
}
