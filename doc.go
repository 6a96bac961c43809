// Package graphkit builds and reshapes typed transaction graphs.
//
// A graph is a set of vertices joined by transactions. Every element carries
// attributes, the most important being its identifier and its semantic type
// from a taxonomy.Catalog. Graphs are written through the graph.Sink
// interface, so the same code can fill the in-memory graph.MemoryGraph or a
// Neo4j database through neo4jgraph.
//
// # Packages
//
//   - taxonomy: the catalog of vertex and transaction types and how
//     identifiers are matched to them
//   - recordstore: tabular rows keyed by "source.Identifier" style keys, the
//     exchange format between transforms and graphs
//   - graph: the Sink contract, an in-memory graph, layouts and merging of
//     record stores into a graph
//   - prefattach: the preferential attachment graph generator
//   - splitnodes: splits identifiers on a delimiter into linked fragments
//   - plugin: the plugin contract both operations are exposed through
//   - serve: a gRPC host for plugins
//   - queue: a Redis hand-off that merges record stores on a worker
//   - component: graphkit.yaml configuration
//
// # Getting Started
//
// Generate a graph in memory:
//
//	kit := graphkit.New(graphkit.WithLogger(logger))
//	g := graph.NewMemoryGraph()
//
//	cfg := kit.GeneratorConfig()
//	cfg.N, cfg.M = 500, 2
//	res, err := kit.Generate(ctx, g, cfg)
//	if graphkit.IsInterrupted(err) {
//		// g holds everything generated before cancellation
//	}
//
// Split e-mail addresses into user and domain vertices:
//
//	rows := recordstore.New()
//	rows.Set(rows.Add(), recordstore.SourceIdentifier, "alice@example.com")
//	res, err := kit.SplitInto(ctx, g, rows, splitnodes.Options{Delimiter: "@"})
//
// Serve both as plugins:
//
//	err := kit.Serve(ctx, g, plugin.Preferences{}, serve.WithPort(50051))
package graphkit
