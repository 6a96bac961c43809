package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit"
	"github.com/zero-day-ai/graphkit/component"
	"github.com/zero-day-ai/graphkit/discovery"
	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/queue"
)

func newWorkerCmd(a *app) *cobra.Command {
	var (
		id       string
		useNeo4j bool
		graphID  string
		graphOut bool
	)
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Merge queued record batches into a graph",
		Long: `Pop record batches from the Redis merge queue and merge them into a graph,
publishing a result per batch. The worker is the only writer of its graph.
It stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := a.kit.Logger()
			if a.cfg.Queue == nil {
				return plugin.NewConfigurationError("graphkit.worker", component.ErrQueueNotConfigured)
			}

			client, err := queue.NewRedisClient(a.cfg.Queue.RedisOptions(logger))
			if err != nil {
				return err
			}
			defer graphkit.CloseWithLog(client, logger, "redis client")

			sink, closeSink, err := a.openSink(ctx, useNeo4j, graphID)
			if err != nil {
				return err
			}
			defer closeSink()

			opts := []queue.WorkerOption{
				queue.WithList(a.cfg.Queue.GetList()),
				queue.WithLogger(logger),
			}
			if id != "" {
				opts = append(opts, queue.WithWorkerID(id))
			}
			w := queue.NewWorker(client, sink, opts...)

			deregister, err := a.announce(ctx, discovery.Instance{
				Kind:       discovery.KindWorker,
				Name:       "merge",
				InstanceID: w.ID(),
				Metadata:   map[string]string{"list": a.cfg.Queue.GetList()},
				StartedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			defer deregister()

			if err := w.Run(ctx); err != nil {
				return err
			}

			if mem, ok := sink.(*graph.MemoryGraph); ok && graphOut {
				return writeJSON(cmd.OutOrStdout(), mem)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "worker id (default: random)")
	cmd.Flags().BoolVar(&useNeo4j, "neo4j", false, "merge into the configured Neo4j database")
	cmd.Flags().StringVar(&graphID, "graph-id", "", "neo4j graph id to merge into")
	cmd.Flags().BoolVar(&graphOut, "graph", false, "print the in-memory graph on exit")
	return cmd
}
