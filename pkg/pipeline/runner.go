package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
	"github.com/matzehuels/forcegraph/pkg/physics"
)

const keyTypeLayout = "layout"

// Runner computes layouts with caching.
//
// The Runner holds no per-run state; every call builds its own simulator,
// so multiple goroutines can share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// LayoutDocument builds a graph from d under the policy in opts and lays it
// out. See [Runner.ComputeLayout].
func (r *Runner) LayoutDocument(ctx context.Context, d graph.Document, opts Options) (graph.Layout, bool, error) {
	g, err := d.Build(graph.WithPolicy(opts.Policy()))
	if err != nil {
		return graph.Layout{}, false, err
	}
	return r.ComputeLayout(ctx, g, opts)
}

// ComputeLayout returns the layout of g under opts and whether it came from
// the cache. Failed runs (bad configuration, divergence, cancellation) are
// never stored. Cache backend errors are logged and treated as misses.
func (r *Runner) ComputeLayout(ctx context.Context, g *graph.Graph, opts Options) (graph.Layout, bool, error) {
	r.applyLogger(&opts)
	opts.SetLayoutDefaults()
	if err := opts.Validate(); err != nil {
		return graph.Layout{}, false, err
	}

	doc := graph.FromGraph(g)
	graphData, err := doc.Marshal()
	if err != nil {
		return graph.Layout{}, false, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(cache.Hash(graphData), opts.LayoutKeyOpts())

	if !opts.Refresh {
		if cached, ok := r.lookup(ctx, cacheKey, opts.Logger); ok {
			return cached, true, nil
		}
	}

	layout, err := r.simulate(ctx, g, doc, opts)
	if err != nil {
		return graph.Layout{}, false, err
	}

	if data, err := graph.MarshalLayout(layout); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.DefaultLayoutTTL); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}
	return layout, false, nil
}

func (r *Runner) lookup(ctx context.Context, key string, logger *log.Logger) (graph.Layout, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
	}
	if err == nil && hit {
		cached, err := graph.UnmarshalLayout(data)
		if err == nil {
			observability.Cache().OnCacheHit(ctx, keyTypeLayout)
			logger.Debug("layout cache hit", "key", key)
			return cached, true
		}
		logger.Debug("discarding unreadable cache entry", "key", key, "err", err)
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	return graph.Layout{}, false
}

func (r *Runner) simulate(ctx context.Context, g *graph.Graph, doc graph.Document, opts Options) (graph.Layout, error) {
	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, g.NodeCount(), g.LinkCount())
	start := time.Now()

	sim, err := physics.New(g, opts.Config, physics.WithLogger(opts.Logger))
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, false, time.Since(start), err)
		return graph.Layout{}, err
	}
	res, err := physics.Run(ctx, sim, opts.MaxSteps)
	elapsed := time.Since(start)
	hooks.OnLayoutComplete(ctx, res.Steps, res.Stable, elapsed, err)
	if err != nil {
		return graph.Layout{}, err
	}

	opts.Logger.Info("computed layout",
		"nodes", g.NodeCount(),
		"links", g.LinkCount(),
		"steps", res.Steps,
		"stable", res.Stable,
		"duration", elapsed)
	if !res.Stable {
		opts.Logger.Warn("layout did not converge", "max_steps", opts.MaxSteps)
	}

	return graph.Layout{
		Dimensions: opts.Dimensions,
		Steps:      res.Steps,
		Stable:     res.Stable,
		Energy:     sim.Energy(),
		Positions:  sim.Positions(),
		Nodes:      doc.Nodes,
		Links:      doc.Links,
	}, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
