package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit"
	"github.com/zero-day-ai/graphkit/component"
	"github.com/zero-day-ai/graphkit/discovery"
	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/graph/neo4jgraph"
	"github.com/zero-day-ai/graphkit/plugin"
)

// Exit codes.
const (
	exitFailure     = 1
	exitInvalid     = 2
	exitInterrupted = 130
)

func exitCode(err error) int {
	switch {
	case graphkit.IsInvalid(err):
		return exitInvalid
	case graphkit.IsInterrupted(err):
		return exitInterrupted
	default:
		return exitFailure
	}
}

// app is the state shared by every subcommand once the configuration has
// been loaded.
type app struct {
	configPath string
	cfg        *component.Config
	kit        *graphkit.Toolkit
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "graphkit",
		Short:         "Generate, split and serve typed transaction graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"path to graphkit.yaml or a directory holding it (default: $"+component.EnvConfig+" or the nearest graphkit.yaml)")

	root.AddCommand(
		newGenerateCmd(a),
		newSplitCmd(a),
		newTypesCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
		newDiscoverCmd(a),
		newCheckCmd(a),
	)
	return root
}

func (a *app) load(ctx context.Context) error {
	var (
		cfg *component.Config
		err error
	)
	if a.configPath != "" {
		if cfg, err = component.Load(a.configPath); err == nil {
			cfg.ApplyEnv()
			err = cfg.Validate()
		}
	} else {
		cfg, err = component.LoadDefault()
	}
	if err != nil {
		return plugin.NewConfigurationError("graphkit.config", err)
	}

	kit, err := graphkit.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	a.cfg, a.kit = cfg, kit
	return nil
}

// openSink returns the graph commands write into: Neo4j when requested,
// otherwise a fresh in-memory graph. The returned close function is never nil.
func (a *app) openSink(ctx context.Context, useNeo4j bool, graphID string) (graph.Sink, func(), error) {
	if !useNeo4j {
		return graph.NewMemoryGraph(), func() {}, nil
	}
	if a.cfg.Neo4j == nil {
		return nil, nil, plugin.NewConfigurationError("graphkit.neo4j", component.ErrNeo4jNotConfigured)
	}
	driver, err := a.cfg.Neo4j.Driver()
	if err != nil {
		return nil, nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, nil, fmt.Errorf("neo4j unreachable: %w", err)
	}

	opts := []neo4jgraph.Option{neo4jgraph.WithLogger(a.kit.Logger())}
	if a.cfg.Neo4j.Database != "" {
		opts = append(opts, neo4jgraph.WithDatabase(a.cfg.Neo4j.Database))
	}
	if graphID != "" {
		opts = append(opts, neo4jgraph.WithGraphID(graphID))
	}
	sink, err := neo4jgraph.Open(ctx, driver, opts...)
	if err != nil {
		_ = driver.Close(ctx)
		return nil, nil, err
	}
	a.kit.Logger().Info("writing to neo4j", "uri", a.cfg.Neo4j.URI, "graph_id", sink.GraphID())
	return sink, func() {
		if err := driver.Close(context.Background()); err != nil {
			a.kit.Logger().Warn("failed to close resource", "resource", "neo4j driver", "error", err)
		}
	}, nil
}

// announce registers info in etcd when discovery is configured. The returned
// function deregisters it and is never nil.
func (a *app) announce(ctx context.Context, info discovery.Instance) (func(), error) {
	if a.cfg.Discovery == nil {
		return func() {}, nil
	}
	logger := a.kit.Logger()

	cli, err := a.cfg.Discovery.Dial()
	if err != nil {
		return nil, err
	}
	reg := discovery.New(cli, append(a.cfg.Discovery.Options(), discovery.WithLogger(logger))...)
	if err := reg.Register(ctx, info); err != nil {
		graphkit.CloseWithLog(cli, logger, "etcd client")
		return nil, err
	}
	logger.Info("announced", "kind", info.Kind, "instance_id", info.InstanceID, "endpoint", info.Endpoint)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reg.Deregister(ctx, info); err != nil {
			logger.Warn("deregister failed", "instance_id", info.InstanceID, "error", err)
		}
		graphkit.CloseWithLog(reg, logger, "discovery registry")
		graphkit.CloseWithLog(cli, logger, "etcd client")
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
