package cache

// LayoutKeyOpts holds every input besides the graph that changes a layout.
// Field order is part of the key; append new fields at the end.
type LayoutKeyOpts struct {
	Dimensions        int     `json:"dimensions"`
	SpringLength      float64 `json:"spring_length"`
	SpringCoefficient float64 `json:"spring_coefficient"`
	Gravity           float64 `json:"gravity"`
	Theta             float64 `json:"theta"`
	DragCoefficient   float64 `json:"drag_coefficient"`
	TimeStep          float64 `json:"time_step"`
	Centering         float64 `json:"centering"`
	StableThreshold   float64 `json:"stable_threshold"`
	MinDistance       float64 `json:"min_distance"`
	MaxSpeed          float64 `json:"max_speed"`
	Repulsion         string  `json:"repulsion"`
	Seed              uint64  `json:"seed"`
	MaxSteps          int     `json:"max_steps"`
}

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey returns the key for a layout of the graph whose document
	// hashes to graphHash, computed with opts.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// layoutKeyVersion is bumped when the simulation changes in a way that
// invalidates previously cached layouts.
const layoutKeyVersion = 1

// DefaultKeyer produces "layout:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", layoutKeyVersion, graphHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, so several deployments can share
// one Redis instance without colliding.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "forcegraph:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*ScopedKeyer)(nil)
)
