// Package httpserver provides the HTTP REST API of the research assistant.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/research"
	"github.com/helixir/research-assistant/internal/store"
)

// ResearchService is the subset of research.Service used by the HTTP server.
type ResearchService interface {
	FetchPapers(ctx context.Context, topic string, minYear int, creds *store.Credentials) ([]domain.Paper, error)
	QueryPapers(ctx context.Context, query string, k int, creds *store.Credentials) (*research.QueryResult, error)
	Report(ctx context.Context, query string, k int, creds *store.Credentials) (*research.Report, error)
	CheckStore(ctx context.Context) error
}

var _ ResearchService = (*research.Service)(nil)

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	service    ResearchService
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     zerolog.Logger
	cfg        Config
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestTimeout bounds each API request. Zero disables the bound.
	RequestTimeout time.Duration
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(cfg Config, service ResearchService, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		service:  service,
		validate: newValidator(),
		metrics:  metrics,
		logger:   observability.WithComponent(logger, "http-server"),
		cfg:      cfg,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger))
	r.Use(metricsMiddleware(s.metrics))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Group(func(r chi.Router) {
		r.Use(requestTimeoutMiddleware(s.cfg.RequestTimeout))

		for _, route := range []struct {
			path    string
			handler http.HandlerFunc
		}{
			{"/fetch_papers", s.fetchPapers},
			{"/query_papers", s.queryPapers},
			{"/research_report", s.researchReport},
		} {
			r.Post(route.path+"/", route.handler)
			r.Post(route.path, route.handler)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the configured store can be opened.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CheckStore(r.Context()); err != nil {
		reqLogger := observability.LoggerFromContext(r.Context(), s.logger)
		reqLogger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
