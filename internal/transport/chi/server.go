// Package chi serves the operational HTTP endpoints: health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/tickerdex/internal/logger"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
	healthuc "github.com/kailas-cloud/tickerdex/internal/usecase/health"
)

const (
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal_error"
)

// HealthChecker runs the aggregated health check.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server implements the ops endpoints.
type Server struct {
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an ops HTTP server.
func NewServer(health HealthChecker, logger *zap.Logger) *Server {
	return &Server{health: health, logger: logger}
}

// Router builds the chi router with the middleware stack. apiKeys protect
// everything but /healthz; an empty list disables auth.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
		logpkg.FromContext(r.Context()).Warn("Health check failing",
			zap.String("status", string(report.Status)),
			zap.Any("checks", checks),
		)
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
