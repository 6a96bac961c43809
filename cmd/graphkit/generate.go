package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/prefattach"
)

type generateFlags struct {
	n                int
	m                int
	randomWeights    bool
	vertexTypes      []string
	transactionTypes []string
	seed             uint64
	freeze           bool
	neo4j            bool
	graphID          string
	graphOut         bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a preferential attachment graph",
		Long: `Build a random graph by preferential attachment. Every new vertex links to
m existing vertices picked by degree, so well connected vertices keep
gaining links.

The run summary is printed as JSON. With --graph the whole in-memory graph
is printed instead; with --neo4j the graph is written to the configured
Neo4j database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.n, "n", "n", 0, "number of vertices (default from config, then 5000)")
	fl.IntVarP(&f.m, "m", "m", 0, "links per new vertex, must be less than n (default from config, then 1)")
	fl.BoolVar(&f.randomWeights, "random-weights", false, "add a random number of parallel transactions per link")
	fl.StringSliceVar(&f.vertexTypes, "vertex-type", nil, "vertex type to draw from (repeatable; default all)")
	fl.StringSliceVar(&f.transactionTypes, "transaction-type", nil, "transaction type to draw from (repeatable; default all)")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed for a reproducible graph")
	fl.BoolVar(&f.freeze, "freeze", false, "only reset the view instead of re-arranging the graph")
	fl.BoolVar(&f.neo4j, "neo4j", false, "write into the configured Neo4j database")
	fl.StringVar(&f.graphID, "graph-id", "", "neo4j graph id to extend (default: a new graph)")
	fl.BoolVar(&f.graphOut, "graph", false, "print the generated graph instead of the summary")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, f generateFlags) error {
	ctx := cmd.Context()

	cfg := a.cfg.Generator.Apply(a.kit.GeneratorConfig())
	fl := cmd.Flags()
	if fl.Changed("n") {
		cfg.N = f.n
	}
	if fl.Changed("m") {
		cfg.M = f.m
	}
	if fl.Changed("random-weights") {
		cfg.RandomWeights = f.randomWeights
	}
	if fl.Changed("vertex-type") {
		cfg.VertexTypes = f.vertexTypes
	}
	if fl.Changed("transaction-type") {
		cfg.TransactionTypes = f.transactionTypes
	}
	if fl.Changed("seed") {
		cfg.Seed = &f.seed
	}
	cfg.FreezeGraphView = a.cfg.Preferences.FreezeGraphView || f.freeze

	sink, closeSink, err := a.openSink(ctx, f.neo4j, f.graphID)
	if err != nil {
		return err
	}
	defer closeSink()

	logger := a.kit.Logger()
	ctx = plugin.WithInteraction(ctx, plugin.LogInteraction(logger, prefattach.PluginName))
	res, err := a.kit.Generate(ctx, sink, cfg)
	if err != nil {
		logger.Error("generation stopped", "error", err, "run_id", res.RunID)
		return err
	}

	out := cmd.OutOrStdout()
	if mem, ok := sink.(*graph.MemoryGraph); ok && f.graphOut {
		return writeJSON(out, mem)
	}
	return writeJSON(out, res)
}
