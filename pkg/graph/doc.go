// Package graph provides the graph model consumed by the force-layout
// simulator, plus the document and layout formats used on disk and over HTTP.
//
// # Graph Model
//
// A [Graph] holds nodes keyed by caller-supplied string IDs and an ordered
// list of links. Both are kept in insertion order, so iteration and layout
// are deterministic:
//
//	g := graph.New()
//	g.AddNode("a")
//	g.AddNode("b")
//	g.AddLink("a", "b")
//
// Links are undirected springs; a weight scales the spring coefficient.
// Parallel links are allowed and each contributes its own spring.
//
// # Dangling Links
//
// The policy for links that name unregistered nodes is chosen once, at
// construction:
//
//   - [Strict] (default): AddLink returns an UnknownNodeError naming the
//     first missing endpoint and the graph is unchanged
//   - [Lenient]: missing endpoints are registered at the origin first
//
// # Documents
//
// [Document] is the JSON/YAML form of a graph:
//
//	{
//	  "nodes": [{"id": "app"}, {"id": "db", "pinned": true, "position": [0, 0]}],
//	  "links": [{"source": "app", "target": "db", "weight": 2}]
//	}
//
// Common operations:
//
//	doc, _ := graph.ReadFile("deps.yaml")   // File → Document
//	g, _ := doc.Build()                     // Document → Graph
//	doc = graph.FromGraph(g)                // Graph → Document
//
// # Layouts
//
// [Layout] is the output of a run: node ID to position, plus the step count
// and whether the simulation converged. Use [MarshalLayout] and
// [WriteLayoutFile] to persist it.
//
// # Concurrency
//
// A Graph is not safe for concurrent mutation. Once built it may be read
// from several goroutines, and each simulator takes its own snapshot.
package graph
