// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST /v1/layouts  compute a layout for {"graph": ..., "options": ...}
//	GET  /healthz     liveness probe
//	GET  /metrics     Prometheus metrics
//
// Every request builds its own graph and simulator; the only shared state
// is the cache behind the pipeline runner.
package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// Defaults for Config fields left at zero.
const (
	DefaultAddr            = ":8080"
	DefaultMaxBodyBytes    = 8 << 20
	DefaultMaxNodes        = 50_000
	DefaultMaxSteps        = 10_000
	DefaultRequestTimeout  = 2 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr   string
	Runner *pipeline.Runner
	Logger *log.Logger

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64
	// MaxNodes rejects larger graphs before simulating.
	MaxNodes int
	// MaxSteps is the largest step cap a request may ask for.
	MaxSteps int
	// MaxConcurrent bounds simultaneous layout runs. Zero uses GOMAXPROCS.
	MaxConcurrent int
	// RequestTimeout bounds a single layout request.
	RequestTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Runner == nil {
		c.Runner = pipeline.NewRunner(nil, nil, c.Logger)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Server is the HTTP layout service.
type Server struct {
	cfg     Config
	metrics *Metrics
	router  chi.Router
}

// New builds the router and registers the service's metrics as the
// process-wide observability hooks.
//
// The hooks are global, so only the most recently created Server records
// layout and cache metrics; layouts served by an earlier Server in the same
// process are counted by the newer one. HTTP request metrics stay per
// Server. Run one Server per process, or call observability.Reset between
// servers in tests.
func New(cfg Config) *Server {
	cfg.setDefaults()
	s := &Server{
		cfg:     cfg,
		metrics: NewMetrics(),
	}
	observability.SetLayoutHooks(s.metrics)
	observability.SetCacheHooks(s.metrics)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(
			middleware.Timeout(s.cfg.RequestTimeout),
			middleware.ThrottleBacklog(s.cfg.MaxConcurrent, 4*s.cfg.MaxConcurrent, s.cfg.RequestTimeout),
		).Post("/layouts", s.handleLayout)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the service's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
