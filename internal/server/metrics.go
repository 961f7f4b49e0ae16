package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/forcegraph/pkg/observability"
)

// Metrics holds the service's Prometheus collectors. It implements the
// observability hooks, so the pipeline reports into it without importing
// Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	LayoutsTotal    *prometheus.CounterVec
	LayoutDuration  prometheus.Histogram
	LayoutSteps     prometheus.Histogram
	LayoutNodes     prometheus.Histogram
	LayoutsInFlight prometheus.Gauge

	CacheRequestsTotal *prometheus.CounterVec
	CacheBytesWritten  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LayoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forcegraph_layouts_total",
				Help: "Layout runs by outcome (stable, unstable, error)",
			},
			[]string{"result"},
		),
		LayoutDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forcegraph_layout_duration_seconds",
				Help:    "Wall time of layout simulations",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
			},
		),
		LayoutSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forcegraph_layout_steps",
				Help:    "Simulation steps per layout run",
				Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
			},
		),
		LayoutNodes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forcegraph_layout_nodes",
				Help:    "Node count of simulated graphs",
				Buckets: prometheus.ExponentialBuckets(10, 10, 5),
			},
		),
		LayoutsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "forcegraph_layouts_in_flight",
				Help: "Simulations currently running",
			},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forcegraph_cache_requests_total",
				Help: "Cache lookups by key type and result (hit, miss)",
			},
			[]string{"key_type", "result"},
		),
		CacheBytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forcegraph_cache_written_bytes_total",
				Help: "Bytes written to the cache",
			},
			[]string{"key_type"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forcegraph_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forcegraph_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// OnLayoutStart implements observability.LayoutHooks.
func (m *Metrics) OnLayoutStart(_ context.Context, nodes, _ int) {
	m.LayoutsInFlight.Inc()
	m.LayoutNodes.Observe(float64(nodes))
}

// OnLayoutComplete implements observability.LayoutHooks.
func (m *Metrics) OnLayoutComplete(_ context.Context, steps int, stable bool, d time.Duration, err error) {
	m.LayoutsInFlight.Dec()
	result := "unstable"
	switch {
	case err != nil:
		result = "error"
	case stable:
		result = "stable"
	}
	m.LayoutsTotal.WithLabelValues(result).Inc()
	m.LayoutDuration.Observe(d.Seconds())
	m.LayoutSteps.Observe(float64(steps))
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheRequestsTotal.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheRequestsTotal.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytesWritten.WithLabelValues(keyType).Add(float64(size))
}

// instrument records request counts and latency per route pattern, so
// label cardinality stays bounded.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status := strconv.Itoa(code)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

var (
	_ observability.LayoutHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
)
