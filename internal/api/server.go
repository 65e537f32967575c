// Package api exposes the pipeline over HTTP: a single scan endpoint, a
// health check, and a Prometheus metrics endpoint, wrapped in the
// reference service's middleware chain (logging, security headers, CORS,
// rate limiting, API-key auth, request ID, timeout, panic recovery).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cyberzilla/urlsentinel/internal/apierrors"
	"github.com/cyberzilla/urlsentinel/internal/config"
	"github.com/cyberzilla/urlsentinel/internal/metrics"
	"github.com/cyberzilla/urlsentinel/internal/middleware"
	"github.com/cyberzilla/urlsentinel/internal/models"
	"github.com/cyberzilla/urlsentinel/internal/orchestrator"
	"github.com/cyberzilla/urlsentinel/pkg/logger"
)

// Server hosts the scan pipeline behind an HTTP interface.
type Server struct {
	server       *http.Server
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
	config       *config.Config
	middleware   *middleware.MiddlewareStack
	metrics      *metrics.Registry
}

// NewServer wires the orchestrator and configuration into a ready-to-run
// HTTP server.
func NewServer(orch *orchestrator.Orchestrator, reg *metrics.Registry, log *logger.Logger, cfg *config.Config) *Server {
	mux := http.NewServeMux()
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	s := &Server{
		orchestrator: orch,
		logger:       log,
		config:       cfg,
		middleware:   middleware.NewMiddleware(log),
		metrics:      reg,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	s.setupRoutes(mux)
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	chain := []middleware.Middleware{
		middleware.RecoveryMiddleware(s.logger),
		middleware.RequestIDMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSHeaderMiddleware(),
		middleware.LoggerMiddleware(s.logger),
		middleware.RateLimitMiddleware(s.config.Security.RateLimitPerMin),
		middleware.APIKeyMiddleware(s.config.Security.APIKey),
		middleware.TimeoutMiddleware(s.config.Server.RequestTimeout),
	}

	mux.Handle("/api/v1/scan", s.middleware.Chain(http.HandlerFunc(s.scanHandler), chain...))
	mux.HandleFunc("/health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "up",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type scanRequest struct {
	URL string `json:"url"`
}

func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithValidationError(w, "request body must be valid JSON with a \"url\" field")
		return
	}
	if req.URL == "" {
		middleware.RespondWithValidationError(w, "\"url\" is required")
		return
	}

	result, err := s.orchestrator.Scan(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, apierrors.ErrInvalidInput) || errors.Is(err, apierrors.ErrUnsupportedScheme) {
			middleware.RespondWithValidationError(w, err.Error())
			return
		}
		s.logger.Error("scan failed for %s: %v", req.URL, err)
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal analysis error")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toResponse(result))
}

// scanResponse is the wire shape returned to API callers, field-named per
// the public contract rather than the internal ScanResult's Go field names.
type scanResponse struct {
	Status      string                 `json:"status"`
	Message     string                 `json:"message"`
	RiskScore   float64                `json:"risk_score"`
	ML          models.MLDetails       `json:"ml_details"`
	Domain      models.DomainTrust     `json:"domain_trust"`
	Network     models.NetworkObservation `json:"network"`
	RiskFactors []models.RiskFactor    `json:"risk_factors"`
	AnalysisMS  *int64                 `json:"analysis_time_ms,omitempty"`
}

func toResponse(r models.ScanResult) scanResponse {
	return scanResponse{
		Status:      string(r.Status),
		Message:     r.Message,
		RiskScore:   r.RiskScore,
		ML:          r.ML,
		Domain:      r.Domain,
		Network:     r.Network,
		RiskFactors: r.RiskFactors,
		AnalysisMS:  r.AnalysisMS,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// attempts a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("urlsentinel API server starting on %s", s.server.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
