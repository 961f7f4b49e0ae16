package graph

import (
	"fmt"
	"maps"
)

// =============================================================================
// Document - Graph Serialization Format
// =============================================================================

// Document is the serialization format for graphs read from files, HTTP
// requests, and cache keys. The same struct decodes from JSON and YAML:
//
//	nodes:
//	  - id: app
//	  - id: db
//	    pinned: true
//	    position: [0, 0]
//	links:
//	  - {source: app, target: db, weight: 2}
type Document struct {
	Nodes []NodeDoc `json:"nodes" yaml:"nodes"`
	Links []LinkDoc `json:"links" yaml:"links"`
}

// NodeDoc is a serialized node.
type NodeDoc struct {
	ID       string         `json:"id" yaml:"id"`
	Pinned   bool           `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Position []float64      `json:"position,omitempty" yaml:"position,omitempty"`
	Meta     map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// LinkDoc is a serialized link. A nil Weight means the default of 1,
// so an explicit zero survives a round trip.
type LinkDoc struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// =============================================================================
// Graph ↔ Document Conversion
// =============================================================================

// Build constructs a Graph from the document. Nodes are added in document
// order, then links. Options are applied to the new graph, so
// WithPolicy(Lenient) lets links name nodes the document never lists.
func (d Document) Build(opts ...Option) (*Graph, error) {
	g := New(opts...)

	for i, nd := range d.Nodes {
		if _, exists := g.nodes[nd.ID]; exists {
			return nil, fmt.Errorf("node %d (%q): %w", i, nd.ID, ErrDuplicateNodeID)
		}
		var (
			n   *Node
			err error
		)
		if nd.Position != nil {
			n, err = g.AddNodeAt(nd.ID, nd.Position)
		} else {
			n, err = g.AddNode(nd.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("node %d (%q): %w", i, nd.ID, err)
		}
		n.Pinned = nd.Pinned
		if nd.Meta != nil {
			n.Meta = maps.Clone(nd.Meta)
		}
	}

	for i, ld := range d.Links {
		w := 1.0
		if ld.Weight != nil {
			w = *ld.Weight
		}
		if err := g.AddWeightedLink(ld.Source, ld.Target, w); err != nil {
			return nil, fmt.Errorf("link %d (%s→%s): %w", i, ld.Source, ld.Target, err)
		}
	}

	return g, nil
}

// FromGraph converts a Graph to its serialization format.
// Insertion order is preserved, so equal graphs produce equal documents.
// Links with the default weight omit it.
func FromGraph(g *Graph) Document {
	doc := Document{
		Nodes: make([]NodeDoc, 0, g.NodeCount()),
		Links: make([]LinkDoc, 0, g.LinkCount()),
	}

	for n := range g.Nodes() {
		nd := NodeDoc{ID: n.ID, Pinned: n.Pinned}
		if n.Position != nil {
			nd.Position = append([]float64(nil), n.Position...)
		}
		if len(n.Meta) > 0 {
			nd.Meta = maps.Clone(n.Meta)
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for l := range g.Links() {
		ld := LinkDoc{Source: l.Source, Target: l.Target}
		if l.Weight != 1 {
			w := l.Weight
			ld.Weight = &w
		}
		doc.Links = append(doc.Links, ld)
	}

	return doc
}
