// Package pkg provides the core libraries for forcegraph, a force-directed
// graph layout engine.
//
// # Overview
//
// forcegraph places the nodes of a graph in two or three dimensions by
// simulating springs along links, mutual repulsion between all nodes and a
// weak pull toward the origin. The pkg directory is organized into:
//
//  1. [graph] - The graph model and its JSON/YAML document and layout formats
//  2. [physics] - The force simulator (springs, repulsion, integration)
//  3. [pipeline] - Orchestration (document → graph → simulation → layout)
//  4. [cache] - Layout caching (file, Redis, null) and key derivation
//  5. [observability] - Hooks for layout and cache metrics
//  6. [errors] - Coded errors shared by every layer
//
// # Architecture
//
// The typical data flow:
//
//	graph document (JSON/YAML)
//	         ↓
//	    [graph] package (validated node/link model)
//	         ↓
//	    [physics] package (step until stable or the step cap)
//	         ↓
//	    [pipeline] package (cache lookup, hooks, logging)
//	         ↓
//	    layout JSON
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/forcegraph/pkg/graph"
//	    "github.com/matzehuels/forcegraph/pkg/physics"
//	)
//
//	g := graph.New()
//	g.AddNode("a")
//	g.AddNode("b")
//	g.AddLink("a", "b")
//
//	sim, _ := physics.New(g, physics.DefaultConfig())
//	res, _ := physics.Run(ctx, sim, 500)
//	pos, _ := sim.Position("a")
//
// With caching, use the pipeline runner instead:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	layout, cached, err := runner.LayoutDocument(ctx, doc, pipeline.DefaultOptions())
//
// # Error Handling
//
// Errors carry a [errors.Code] so callers can branch without string
// matching:
//
//	if errors.Is(err, errors.ErrCodeUnknownNode) {
//	    // a link referenced a node that was never added
//	}
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/graph
// [physics]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/physics
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/errors
// [errors.Code]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/errors#Code
package pkg
