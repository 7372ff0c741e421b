// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Answerer answers questions against a corpus snapshot. *qa.Engine implements it.
type Answerer interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error)
	Snapshot() *qa.Snapshot
	Root() string
}

// Server is the HTTP server for the kotae API.
type Server struct {
	engine  Answerer
	history storage.HistoryStore
	metrics *metrics.Metrics
	limiter *rate.Limiter
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the history endpoint backed by store.
func WithHistory(store storage.HistoryStore) Option {
	return func(s *Server) { s.history = store }
}

// WithMetrics serves m on /metrics and counts requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server. API requests are limited to cfg.RequestsPerSecond with
// bursts of cfg.Burst; a non-positive rate disables limiting.
func NewServer(engine Answerer, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	logger = utils.OrNop(logger)
	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware(routePattern))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("corpus", s.engine.Root()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.RecordRateLimited()
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
