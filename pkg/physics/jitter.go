package physics

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// coincident is the separation below which two positions are treated as
// the same point and a jitter offset is used instead.
const coincident = 1e-9

// jitterLength is the length of every offset a [Seeded] source returns.
// Coincident nodes repel as if one unit apart.
const jitterLength = 1.0

// Source supplies displacement vectors for node pairs that sit on the same
// point, where the separation has no direction.
//
// Offset(step, a, b, dims) is used in place of p_a - p_b. Implementations
// must be deterministic and antisymmetric: Offset(s, b, a, d) must equal
// -Offset(s, a, b, d), so the pair is pushed apart symmetrically. The Z
// component must be zero when dims is 2.
type Source interface {
	Offset(step uint64, a, b, dims int) r3.Vec
}

// Seeded is the default jitter [Source]. Each offset is drawn from a PCG
// stream keyed by (seed, step, unordered pair), so results do not depend on
// call order or on how work is split across goroutines.
type Seeded struct {
	seed uint64
}

// NewSource returns a seeded jitter source.
func NewSource(seed uint64) *Seeded {
	return &Seeded{seed: seed}
}

// Offset implements [Source].
func (s *Seeded) Offset(step uint64, a, b, dims int) r3.Vec {
	if a == b {
		return r3.Vec{}
	}
	lo, hi, sign := a, b, 1.0
	if a > b {
		lo, hi, sign = b, a, -1.0
	}

	rng := rand.New(rand.NewPCG(
		s.seed^(step*0x9e3779b97f4a7c15),
		uint64(lo)*0xbf58476d1ce4e5b9^uint64(hi),
	))

	var v r3.Vec
	for {
		v = r3.Vec{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1}
		if dims == 3 {
			v.Z = 2*rng.Float64() - 1
		}
		if n := r3.Norm(v); n > 1e-3 && n <= 1 {
			break
		}
	}
	return r3.Scale(sign*jitterLength/r3.Norm(v), v)
}

// isFinite reports whether every component of v is finite.
func isFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
