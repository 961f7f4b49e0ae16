package physics

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithJitter replaces the seeded jitter source built from Config.Seed.
func WithJitter(s Source) Option {
	return func(sim *Simulator) { sim.jitter = s }
}

// WithRepulsion replaces the strategy selected by Config.Repulsion.
func WithRepulsion(r Repulsion) Option {
	return func(sim *Simulator) { sim.repulsion = r }
}

// WithLogger sets the logger used for divergence reports.
func WithLogger(l *log.Logger) Option {
	return func(sim *Simulator) { sim.logger = l }
}

type spring struct {
	source, target int
	weight         float64
}

// Simulator relaxes a graph layout by explicit integration of spring,
// repulsion, and centering forces.
//
// The graph is snapshotted at construction: nodes and links added to it
// afterwards are not seen. Each layout run owns its Simulator; there is no
// package-level state, so independent simulators may run concurrently.
// A single Simulator is not safe for concurrent use.
type Simulator struct {
	cfg       Config
	jitter    Source
	repulsion Repulsion
	logger    *log.Logger

	ids     []string
	index   map[string]int
	pinned  []bool
	springs []spring

	pos   []r3.Vec
	vel   []r3.Vec
	force []r3.Vec

	// Integration targets, swapped with pos/vel once a step is finite.
	nextPos []r3.Vec
	nextVel []r3.Vec

	steps  int
	stable bool
	energy float64
	err    error
}

// New validates cfg and binds a simulator to a snapshot of g.
//
// Nodes start at their initial position from the graph (truncated to
// cfg.Dimensions, missing components zero) or at the origin. Self-loops are
// kept in the graph but exert no force.
func New(g *graph.Graph, cfg Config, opts ...Option) (*Simulator, error) {
	if g == nil {
		return nil, ferrors.New(ferrors.ErrCodeInvalidInput, "graph is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		cfg:    cfg,
		logger: log.Default(),
		index:  make(map[string]int, g.NodeCount()),
	}
	for _, opt := range opts {
		opt(sim)
	}
	if sim.jitter == nil {
		sim.jitter = NewSource(cfg.Seed)
	}
	if sim.repulsion == nil {
		r, err := NewRepulsion(cfg.Repulsion, cfg.Theta, cfg.Workers)
		if err != nil {
			return nil, &ferrors.ConfigurationError{Field: "Repulsion", Reason: err.Error()}
		}
		sim.repulsion = r
	}

	for n := range g.Nodes() {
		var p r3.Vec
		if len(n.Position) > 0 {
			p.X = n.Position[0]
		}
		if len(n.Position) > 1 {
			p.Y = n.Position[1]
		}
		if len(n.Position) > 2 && cfg.Dimensions == 3 {
			p.Z = n.Position[2]
		}
		sim.index[n.ID] = len(sim.ids)
		sim.ids = append(sim.ids, n.ID)
		sim.pinned = append(sim.pinned, n.Pinned)
		sim.pos = append(sim.pos, p)
	}
	for l := range g.Links() {
		s, t := sim.index[l.Source], sim.index[l.Target]
		if s == t {
			continue
		}
		sim.springs = append(sim.springs, spring{source: s, target: t, weight: l.Weight})
	}
	sim.vel = make([]r3.Vec, len(sim.ids))
	sim.force = make([]r3.Vec, len(sim.ids))
	sim.nextPos = make([]r3.Vec, len(sim.ids))
	sim.nextVel = make([]r3.Vec, len(sim.ids))

	return sim, nil
}

// Step advances the simulation by one time step and reports whether the
// step's largest node displacement fell below Config.StableThreshold.
//
// Step keeps refining after convergence: every call integrates again and
// reports the stability of that step. Once a step diverges, Step returns
// the same *ferrors.DivergenceError on every later call without moving.
func (s *Simulator) Step() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.steps++
	step := uint64(s.steps)

	for i := range s.force {
		s.force[i] = r3.Vec{}
	}

	frame := Frame{
		Step:        step,
		Dims:        s.cfg.Dimensions,
		Gravity:     s.cfg.Gravity,
		MinDistance: s.cfg.MinDistance,
		Jitter:      s.jitter,
		Pos:         s.pos,
		Force:       s.force,
	}
	if err := s.repulsion.Accumulate(&frame); err != nil {
		s.err = fmt.Errorf("step %d: %s repulsion: %w", s.steps, s.repulsion.Name(), err)
		return false, s.err
	}

	s.accumulateSprings(step)

	if c := s.cfg.Centering; c > 0 {
		for i, p := range s.pos {
			s.force[i] = r3.Sub(s.force[i], r3.Scale(c, p))
		}
	}

	return s.integrate()
}

// accumulateSprings applies Hooke's law along every link:
// F = K·w·(|d| - L) along d = p_target - p_source, added to the source and
// subtracted from the target.
func (s *Simulator) accumulateSprings(step uint64) {
	k, rest := s.cfg.SpringCoefficient, s.cfg.SpringLength
	for _, sp := range s.springs {
		d := r3.Sub(s.pos[sp.target], s.pos[sp.source])
		dist := r3.Norm(d)
		if dist < coincident {
			d = s.jitter.Offset(step, sp.target, sp.source, s.cfg.Dimensions)
			dist = r3.Norm(d)
			if dist == 0 {
				continue
			}
		}
		f := r3.Scale(k*sp.weight*(dist-rest)/dist, d)
		s.force[sp.source] = r3.Add(s.force[sp.source], f)
		s.force[sp.target] = r3.Sub(s.force[sp.target], f)
	}
}

// integrate applies v ← (v + F·dt)·C and p ← p + v·dt to unpinned nodes.
// The new state is committed only if every value is finite, so a diverged
// simulator keeps reporting its last finite positions.
func (s *Simulator) integrate() (bool, error) {
	dt, drag, limit := s.cfg.TimeStep, s.cfg.DragCoefficient, s.cfg.MaxSpeed

	var maxMove, energy float64
	diverged := -1
	for i := range s.pos {
		if s.pinned[i] {
			s.nextVel[i] = r3.Vec{}
			s.nextPos[i] = s.pos[i]
			continue
		}
		v := r3.Scale(drag, r3.Add(s.vel[i], r3.Scale(dt, s.force[i])))
		speed := r3.Norm(v)
		if limit > 0 && speed > limit {
			v = r3.Scale(limit/speed, v)
			speed = limit
		}
		p := r3.Add(s.pos[i], r3.Scale(dt, v))
		s.nextVel[i] = v
		s.nextPos[i] = p

		if diverged < 0 && (!isFinite(v) || !isFinite(p) || math.IsInf(speed, 0) || math.IsNaN(speed)) {
			diverged = i
		}
		energy += speed * speed
		maxMove = max(maxMove, speed*dt)
	}

	if diverged >= 0 {
		err := &ferrors.DivergenceError{Step: s.steps, NodeID: s.ids[diverged]}
		s.err = err
		s.stable = false
		s.logger.Warn("layout diverged", "step", s.steps, "node", err.NodeID)
		return false, err
	}

	s.pos, s.nextPos = s.nextPos, s.pos
	s.vel, s.nextVel = s.nextVel, s.vel
	s.energy = energy
	s.stable = maxMove < s.cfg.StableThreshold || maxMove == 0
	return s.stable, nil
}

// Position returns the current position of id. In 2D the Z component is 0.
// Repeated calls without an intervening Step return identical values. After
// a divergence it returns the last finite position.
func (s *Simulator) Position(id string) (r3.Vec, error) {
	i, ok := s.index[id]
	if !ok {
		return r3.Vec{}, &ferrors.UnknownNodeError{ID: id}
	}
	return s.pos[i], nil
}

// Positions returns every node's position as a Dimensions-length slice.
// The map is freshly allocated on each call.
func (s *Simulator) Positions() map[string][]float64 {
	out := make(map[string][]float64, len(s.ids))
	for i, id := range s.ids {
		p := s.pos[i]
		if s.cfg.Dimensions == 3 {
			out[id] = []float64{p.X, p.Y, p.Z}
		} else {
			out[id] = []float64{p.X, p.Y}
		}
	}
	return out
}

// SetPosition moves a node and clears its velocity. In 2D the Z component
// is ignored.
func (s *Simulator) SetPosition(id string, p r3.Vec) error {
	i, ok := s.index[id]
	if !ok {
		return &ferrors.UnknownNodeError{ID: id}
	}
	if !isFinite(p) {
		return ferrors.New(ferrors.ErrCodeInvalidInput, "position of %q must be finite", id)
	}
	if s.cfg.Dimensions == 2 {
		p.Z = 0
	}
	s.pos[i] = p
	s.vel[i] = r3.Vec{}
	s.stable = false
	return nil
}

// Pin fixes a node in place (or releases it) for subsequent steps.
func (s *Simulator) Pin(id string, pinned bool) error {
	i, ok := s.index[id]
	if !ok {
		return &ferrors.UnknownNodeError{ID: id}
	}
	s.pinned[i] = pinned
	if pinned {
		s.vel[i] = r3.Vec{}
	}
	return nil
}

// IsPinned reports whether id is pinned.
func (s *Simulator) IsPinned(id string) (bool, error) {
	i, ok := s.index[id]
	if !ok {
		return false, &ferrors.UnknownNodeError{ID: id}
	}
	return s.pinned[i], nil
}

// Steps returns the number of steps taken, including a diverged one.
func (s *Simulator) Steps() int { return s.steps }

// Stable reports whether the last step converged.
func (s *Simulator) Stable() bool { return s.stable }

// Energy returns the sum of squared node speeds after the last step.
func (s *Simulator) Energy() float64 { return s.energy }

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config { return s.cfg }

// Err returns the sticky divergence error, if any.
func (s *Simulator) Err() error { return s.err }

// NodeCount returns the number of nodes in the snapshot.
func (s *Simulator) NodeCount() int { return len(s.ids) }

// SpringCount returns the number of force-bearing links (self-loops excluded).
func (s *Simulator) SpringCount() int { return len(s.springs) }

// Repulsion returns the active repulsion strategy.
func (s *Simulator) Repulsion() Repulsion { return s.repulsion }
