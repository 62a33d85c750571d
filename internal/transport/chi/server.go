// Package chi serves the inspect HTTP surface: generated mappings, engine
// health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esodm/internal/domain"
	"github.com/kailas-cloud/esodm/internal/logger"
	"github.com/kailas-cloud/esodm/internal/metrics"
	"github.com/kailas-cloud/esodm/internal/version"
)

const pingTimeout = 2 * time.Second

// Error codes returned in ErrorResponse.
const (
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeInvalidEntity = "invalid_entity"
	CodeInternalError = "internal_error"
)

// MappingSource lists described entities and renders their mappings.
type MappingSource interface {
	EntityNames() []string
	MappingByName(name string) (json.RawMessage, error)
}

// Pinger checks engine reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MappingListResponse is the body of GET /mappings.
type MappingListResponse struct {
	Entities []string `json:"entities"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// Server handles the inspect routes.
type Server struct {
	mappings MappingSource
	engine   Pinger
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer creates a Server. A nil gatherer serves the default registry.
func NewServer(mappings MappingSource, engine Pinger, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{mappings: mappings, engine: engine, gatherer: gatherer, logger: logger}
}

// Router assembles the middleware chain and routes.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/mappings", s.ListMappings)
	r.Get("/mappings/{name}", s.GetMapping)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}

// ListMappings handles GET /mappings.
func (s *Server) ListMappings(w http.ResponseWriter, _ *http.Request) {
	names := s.mappings.EntityNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, MappingListResponse{Entities: names})
}

// GetMapping handles GET /mappings/{name}. The name is a Go type name or an index name.
func (s *Server) GetMapping(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := logger.With(r.Context(), zap.String("entity", name))
	m, err := s.mappings.MappingByName(name)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(m)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Version: version.String(), Checks: map[string]string{"elasticsearch": "ok"}}
	status := http.StatusOK
	if err := s.engine.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Warn("engine ping failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Checks["elasticsearch"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrMapping):
		log.Warn("mapping error", zap.Error(err))
		var me *domain.MappingError
		msg := domain.ErrMapping.Error()
		if errors.As(err, &me) {
			msg = me.Error()
		}
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidEntity, msg)
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
