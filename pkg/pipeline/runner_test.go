package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/forcegraph/pkg/cache"
	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/observability"
)

// memoryCache is an in-process cache that counts writes.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sets++
	c.data[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Close() error { return nil }

func chainDocument() graph.Document {
	return graph.Document{
		Nodes: []graph.NodeDoc{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []graph.LinkDoc{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}
}

func TestComputeLayoutCaches(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCache()
	r := NewRunner(mem, nil, nil)

	first, hit, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, first.Stable)
	assert.Equal(t, 2, first.Dimensions)
	assert.Len(t, first.Positions, 3)
	assert.Len(t, first.Nodes, 3)
	assert.Len(t, first.Links, 2)
	assert.Equal(t, 1, mem.sets)

	second, hit, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mem.sets)

	opts := DefaultOptions()
	opts.Refresh = true
	third, hit, err := r.LayoutDocument(ctx, chainDocument(), opts)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, first.Positions, third.Positions)
	assert.Equal(t, 2, mem.sets)
}

func TestComputeLayoutKeyDependsOnOptions(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newMemoryCache(), nil, nil)

	_, _, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Dimensions = 3
	l, hit, err := r.LayoutDocument(ctx, chainDocument(), opts)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, l.Dimensions)
	for id, p := range l.Positions {
		assert.Len(t, p, 3, id)
	}
}

func TestComputeLayoutWithFileCache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, nil)

	_, hit, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	require.False(t, hit)

	_, hit, err = NewRunner(fc, nil, nil).LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, hit, "a fresh runner over the same directory should hit")
}

func TestComputeLayoutFailuresAreNotCached(t *testing.T) {
	ctx := context.Background()

	diverging := graph.Document{
		Nodes: []graph.NodeDoc{
			{ID: "a", Position: []float64{0, 0}},
			{ID: "b", Position: []float64{1000, 0}},
		},
	}
	divergeOpts := DefaultOptions()
	divergeOpts.TimeStep = 1e200

	zeroDrag := DefaultOptions()
	zeroDrag.DragCoefficient = 0

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		doc  graph.Document
		opts Options
		code ferrors.Code
	}{
		{"divergence", ctx, diverging, divergeOpts, ferrors.ErrCodeDivergence},
		{"cancelled", cancelled, chainDocument(), DefaultOptions(), ""},
		{"unknown endpoint", ctx, graph.Document{
			Nodes: []graph.NodeDoc{{ID: "a"}},
			Links: []graph.LinkDoc{{Source: "a", Target: "ghost"}},
		}, DefaultOptions(), ferrors.ErrCodeUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMemoryCache()
			_, _, err := NewRunner(mem, nil, nil).LayoutDocument(tt.ctx, tt.doc, tt.opts)
			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, ferrors.GetCode(err), "err = %v", err)
			} else {
				assert.ErrorIs(t, err, context.Canceled)
			}
			assert.Zero(t, mem.sets)
		})
	}

	t.Run("zero drag defaults", func(t *testing.T) {
		// SetLayoutDefaults replaces a zero drag, so this succeeds.
		_, _, err := NewRunner(nil, nil, nil).LayoutDocument(ctx, chainDocument(), zeroDrag)
		assert.NoError(t, err)
	})
}

func TestLayoutDocumentLenient(t *testing.T) {
	doc := graph.Document{
		Nodes: []graph.NodeDoc{{ID: "a"}},
		Links: []graph.LinkDoc{{Source: "a", Target: "b"}},
	}
	opts := DefaultOptions()
	opts.Lenient = true

	l, _, err := NewRunner(nil, nil, nil).LayoutDocument(context.Background(), doc, opts)
	require.NoError(t, err)
	assert.Contains(t, l.Positions, "b")
}

func TestComputeLayoutCacheErrorsAreMisses(t *testing.T) {
	mem := newMemoryCache()
	mem.err = cache.ErrUnavailable

	l, hit, err := NewRunner(mem, nil, nil).LayoutDocument(context.Background(), chainDocument(), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, l.Positions, 3)
}

func TestComputeLayoutCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryCache()
	r := NewRunner(mem, nil, nil)

	_, _, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	for k := range mem.data {
		mem.data[k] = []byte("{broken")
	}

	l, hit, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, l.Positions, 3)
}

type recordingHooks struct {
	observability.NoopLayoutHooks
	observability.NoopCacheHooks

	mu                 sync.Mutex
	starts, completes  int
	hits, misses, sets int
	lastErr            error
}

func (h *recordingHooks) OnLayoutStart(context.Context, int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *recordingHooks) OnLayoutComplete(_ context.Context, _ int, _ bool, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes++
	h.lastErr = err
}

func (h *recordingHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
}

func (h *recordingHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func (h *recordingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets++
}

func TestComputeLayoutEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetLayoutHooks(hooks)
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	r := NewRunner(newMemoryCache(), nil, nil)
	for range 2 {
		_, _, err := r.LayoutDocument(ctx, chainDocument(), DefaultOptions())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, hooks.starts)
	assert.Equal(t, 1, hooks.completes)
	assert.Equal(t, 1, hooks.misses)
	assert.Equal(t, 1, hooks.hits)
	assert.Equal(t, 1, hooks.sets)
	assert.NoError(t, hooks.lastErr)

	opts := DefaultOptions()
	opts.TimeStep = 1e200
	_, _, err := r.LayoutDocument(ctx, graph.Document{Nodes: []graph.NodeDoc{
		{ID: "x", Position: []float64{0, 0}},
		{ID: "y", Position: []float64{1000, 0}},
	}}, opts)
	require.Error(t, err)
	assert.Equal(t, 2, hooks.completes)
	assert.Equal(t, err, hooks.lastErr)
}
