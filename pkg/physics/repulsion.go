package physics

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is the per-step view of the simulation handed to a [Repulsion]
// strategy. Pos and Force are index-aligned with the simulator's node order.
// Strategies add into Force[i] and must not touch Pos.
type Frame struct {
	Step        uint64 // 1-based step being computed
	Dims        int
	Gravity     float64
	MinDistance float64
	Jitter      Source
	Pos         []r3.Vec
	Force       []r3.Vec
}

// Repulsion computes the node-node repulsion term of a step.
type Repulsion interface {
	Accumulate(f *Frame) error
	Name() string
}

// NewRepulsion returns the strategy registered under name.
func NewRepulsion(name string, theta float64, workers int) (Repulsion, error) {
	switch name {
	case RepulsionPairwise, "":
		return Pairwise{Workers: workers}, nil
	case RepulsionBarnesHut:
		return BarnesHut{Theta: theta, Workers: workers}, nil
	default:
		return nil, fmt.Errorf("unknown repulsion strategy %q", name)
	}
}

// repel returns the force on node i from a unit charge at separation
// d = p_i - p_j. A coincident pair is separated by the jitter source.
func (f *Frame) repel(i, j int, d r3.Vec) r3.Vec {
	dist := r3.Norm(d)
	if dist < coincident {
		d = f.Jitter.Offset(f.Step, i, j, f.Dims)
		dist = r3.Norm(d)
		if dist == 0 {
			return r3.Vec{}
		}
	}
	r := max(dist, f.MinDistance)
	return r3.Scale(-f.Gravity/(r*r*dist), d)
}

// forEachBlock calls fn on contiguous index blocks covering [0, n).
// With workers <= 1 fn runs once on the calling goroutine.
func forEachBlock(n, workers int, fn func(lo, hi int) error) error {
	if workers <= 1 || n < 2*workers {
		return fn(0, n)
	}
	size := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}

// =============================================================================
// Pairwise - Exact O(N²) Repulsion
// =============================================================================

// Pairwise evaluates every ordered pair exactly.
//
// Each node's force is summed over the other nodes in index order, and rows
// are split into contiguous blocks across Workers goroutines. Because a row
// is always summed by one goroutine in the same order, the result is
// bit-identical for any worker count.
type Pairwise struct {
	Workers int
}

// Name implements [Repulsion].
func (Pairwise) Name() string { return RepulsionPairwise }

// Accumulate implements [Repulsion].
func (p Pairwise) Accumulate(f *Frame) error {
	n := len(f.Pos)
	return forEachBlock(n, p.Workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			var sum r3.Vec
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				sum = r3.Add(sum, f.repel(i, j, r3.Sub(f.Pos[i], f.Pos[j])))
			}
			f.Force[i] = r3.Add(f.Force[i], sum)
		}
		return nil
	})
}

// =============================================================================
// BarnesHut - Tree-Approximated Repulsion
// =============================================================================

// BarnesHut approximates repulsion with a quadtree (2D) or octree (3D)
// rebuilt every step. Theta is the opening ratio: 0 evaluates every pair
// exactly, larger values trade accuracy for speed.
//
// Nodes sharing exactly the same coordinates are separated by the jitter
// source before tree insertion, since the tree cannot split them.
type BarnesHut struct {
	Theta   float64
	Workers int
}

// Name implements [Repulsion].
func (BarnesHut) Name() string { return RepulsionBarnesHut }

// body is a unit-mass particle in the Barnes-Hut tree.
type body struct {
	idx   int
	coord r3.Vec
}

func (b *body) Coord2() r2.Vec { return r2.Vec{X: b.coord.X, Y: b.coord.Y} }
func (b *body) Coord3() r3.Vec { return b.coord }
func (b *body) Mass() float64  { return 1 }

// Accumulate implements [Repulsion].
func (bh BarnesHut) Accumulate(f *Frame) error {
	n := len(f.Pos)
	if n < 2 {
		return nil
	}
	bodies := bh.bodies(f)

	// force returns the contribution of mass m2 at separation v (from i
	// towards the mass) on node i. other is nil for aggregate masses.
	force := func(i int, other *body, m2 float64, v r3.Vec) r3.Vec {
		if other != nil && other.idx == i {
			return r3.Vec{}
		}
		d := r3.Scale(-1, v)
		if other == nil {
			dist := r3.Norm(d)
			if dist < coincident {
				return r3.Vec{}
			}
			r := max(dist, f.MinDistance)
			return r3.Scale(-f.Gravity*m2/(r*r*dist), d)
		}
		return r3.Scale(m2, f.repel(i, other.idx, d))
	}

	if f.Dims == 3 {
		particles := make([]barneshut.Particle3, n)
		for i := range bodies {
			particles[i] = &bodies[i]
		}
		vol, theta := bh.volume(particles)
		fn := func(p1, p2 barneshut.Particle3, _, m2 float64, v r3.Vec) r3.Vec {
			other, _ := p2.(*body)
			return force(p1.(*body).idx, other, m2, v)
		}
		return forEachBlock(n, bh.Workers, func(lo, hi int) error {
			for i := lo; i < hi; i++ {
				f.Force[i] = r3.Add(f.Force[i], vol.ForceOn(particles[i], theta, fn))
			}
			return nil
		})
	}

	particles := make([]barneshut.Particle2, n)
	for i := range bodies {
		particles[i] = &bodies[i]
	}
	plane, theta := bh.plane(particles)
	fn := func(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		other, _ := p2.(*body)
		out := force(p1.(*body).idx, other, m2, r3.Vec{X: v.X, Y: v.Y})
		return r2.Vec{X: out.X, Y: out.Y}
	}
	return forEachBlock(n, bh.Workers, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			out := plane.ForceOn(particles[i], theta, fn)
			f.Force[i] = r3.Add(f.Force[i], r3.Vec{X: out.X, Y: out.Y})
		}
		return nil
	})
}

// bodies snapshots positions for the tree. With Theta > 0, exact duplicates
// are moved apart by their jitter offset from the first node at that point.
func (bh BarnesHut) bodies(f *Frame) []body {
	bodies := make([]body, len(f.Pos))
	if bh.Theta <= 0 {
		for i, p := range f.Pos {
			bodies[i] = body{idx: i, coord: p}
		}
		return bodies
	}

	seen := make(map[r3.Vec]int, len(f.Pos))
	for i, p := range f.Pos {
		c := p
		for k := uint64(0); ; k++ {
			first, dup := seen[c]
			if !dup || k == 8 {
				break
			}
			c = r3.Add(c, f.Jitter.Offset(f.Step+k, i, first, f.Dims))
		}
		seen[c] = i
		bodies[i] = body{idx: i, coord: c}
	}
	return bodies
}

// plane builds the quadtree. If the coordinates cannot be told apart at
// float64 precision the exact all-pairs path is used for this step.
func (bh BarnesHut) plane(ps []barneshut.Particle2) (*barneshut.Plane, float64) {
	if bh.Theta <= 0 {
		return &barneshut.Plane{Particles: ps}, 0
	}
	plane, err := barneshut.NewPlane(ps)
	if err != nil {
		return &barneshut.Plane{Particles: ps}, 0
	}
	return plane, bh.Theta
}

// volume is the 3D counterpart of plane.
func (bh BarnesHut) volume(ps []barneshut.Particle3) (*barneshut.Volume, float64) {
	if bh.Theta <= 0 {
		return &barneshut.Volume{Particles: ps}, 0
	}
	vol, err := barneshut.NewVolume(ps)
	if err != nil {
		return &barneshut.Volume{Particles: ps}, 0
	}
	return vol, bh.Theta
}
