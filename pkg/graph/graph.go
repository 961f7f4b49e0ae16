package graph

import (
	"fmt"
	"iter"
	"math"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] and [Graph.AddNodeAt]
	// when the node ID is empty or otherwise unusable.
	ErrInvalidNodeID = ferrors.New(ferrors.ErrCodeInvalidInput, "invalid node ID")

	// ErrInvalidWeight is returned by [Graph.AddWeightedLink] when the weight
	// is negative, NaN, or infinite.
	ErrInvalidWeight = ferrors.New(ferrors.ErrCodeInvalidInput, "link weight must be finite and non-negative")

	// ErrInvalidPosition is returned by [Graph.AddNodeAt] when the position
	// has no components, more than three, or a non-finite component.
	ErrInvalidPosition = ferrors.New(ferrors.ErrCodeInvalidInput, "position must have 1 to 3 finite components")

	// ErrDuplicateNodeID is returned by [Document.Build] when a document lists
	// the same node ID twice.
	ErrDuplicateNodeID = ferrors.New(ferrors.ErrCodeInvalidInput, "duplicate node ID")
)

// Metadata stores arbitrary key-value pairs attached to a node.
// Layout ignores it; it is carried through documents for callers.
type Metadata map[string]any

// Policy controls how links to unregistered nodes are handled.
type Policy int

const (
	// Strict rejects a link whose endpoint was never added.
	Strict Policy = iota
	// Lenient registers missing endpoints at the origin before adding the link.
	Lenient
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Node is a vertex of the graph.
//
// Position holds the optional initial position (one to three components);
// nil means the node starts at the origin. The simulator copies it at
// construction and never writes back.
type Node struct {
	ID       string
	Pinned   bool
	Position []float64
	Meta     Metadata // never nil after AddNode
}

// Link is an undirected spring between two nodes. Source and target only
// matter for the sign convention of the spring force.
type Link struct {
	Source string
	Target string
	Weight float64 // multiplier on the spring coefficient, default 1
}

// Option configures a Graph.
type Option func(*Graph)

// WithPolicy sets the dangling-link policy. The default is [Strict].
func WithPolicy(p Policy) Option {
	return func(g *Graph) { g.policy = p }
}

// Graph is the node and link set handed to the simulator.
//
// Nodes and links are kept in insertion order so that iteration, document
// export, and simulation are all deterministic. Parallel links are allowed
// and each contributes its own spring.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// mutation; build it fully before layout begins.
type Graph struct {
	nodes  map[string]*Node
	order  []*Node
	links  []Link
	degree map[string]int
	policy Policy
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		degree: make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the dangling-link policy chosen at construction.
func (g *Graph) Policy() Policy { return g.policy }

// AddNode registers a node at the origin.
// Adding an existing ID returns the existing node unchanged.
// Returns an error wrapping ErrInvalidNodeID for empty or malformed IDs.
func (g *Graph) AddNode(id string) (*Node, error) {
	if n, ok := g.nodes[id]; ok {
		return n, nil
	}
	if err := ferrors.ValidateNodeID(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNodeID, ferrors.UserMessage(err))
	}
	n := &Node{ID: id, Meta: Metadata{}}
	g.nodes[id] = n
	g.order = append(g.order, n)
	return n, nil
}

// AddNodeAt registers a node with an initial position, or updates the
// initial position of an existing node. The slice is copied.
func (g *Graph) AddNodeAt(id string, pos []float64) (*Node, error) {
	if len(pos) == 0 || len(pos) > 3 {
		return nil, ErrInvalidPosition
	}
	for _, v := range pos {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrInvalidPosition
		}
	}
	n, err := g.AddNode(id)
	if err != nil {
		return nil, err
	}
	n.Position = append([]float64(nil), pos...)
	return n, nil
}

// AddLink adds a link with weight 1. See [Graph.AddWeightedLink].
func (g *Graph) AddLink(source, target string) error {
	return g.AddWeightedLink(source, target, 1)
}

// AddWeightedLink adds a link between source and target.
//
// Under [Strict] it returns an [ferrors.UnknownNodeError] naming the first
// missing endpoint (source is checked before target) and leaves the graph
// unchanged. Under [Lenient] missing endpoints are registered at the origin.
// A negative or non-finite weight yields ErrInvalidWeight.
func (g *Graph) AddWeightedLink(source, target string, weight float64) error {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return ErrInvalidWeight
	}
	if g.policy == Strict {
		if _, ok := g.nodes[source]; !ok {
			return &ferrors.UnknownNodeError{ID: source}
		}
		if _, ok := g.nodes[target]; !ok {
			return &ferrors.UnknownNodeError{ID: target}
		}
	} else {
		// Validate both before registering either, so a bad target
		// does not leave a stray source behind.
		for _, id := range []string{source, target} {
			if _, ok := g.nodes[id]; ok {
				continue
			}
			if err := ferrors.ValidateNodeID(id); err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidNodeID, ferrors.UserMessage(err))
			}
		}
		if _, err := g.AddNode(source); err != nil {
			return err
		}
		if _, err := g.AddNode(target); err != nil {
			return err
		}
	}
	g.links = append(g.links, Link{Source: source, Target: target, Weight: weight})
	g.degree[source]++
	g.degree[target]++
	return nil
}

// Pin marks a node as fixed (or free). Pinned nodes never move during layout.
func (g *Graph) Pin(id string, pinned bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return &ferrors.UnknownNodeError{ID: id}
	}
	n.Pinned = pinned
	return nil
}

// Node returns the node with the given ID and whether it exists.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes yields every node in insertion order.
// The sequence is lazy and may be ranged over any number of times.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range g.order {
			if !yield(n) {
				return
			}
		}
	}
}

// Links yields every link in insertion order.
func (g *Graph) Links() iter.Seq[Link] {
	return func(yield func(Link) bool) {
		for _, l := range g.links {
			if !yield(l) {
				return
			}
		}
	}
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int { return len(g.order) }

// LinkCount returns the number of links, counting parallel links separately.
func (g *Graph) LinkCount() int { return len(g.links) }

// Degree returns the number of link endpoints at id. A self-loop counts twice.
// Unknown IDs have degree 0.
func (g *Graph) Degree(id string) int { return g.degree[id] }
