package main

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/zero-day-ai/graphkit/discovery"
	"github.com/zero-day-ai/graphkit/prefattach"
	"github.com/zero-day-ai/graphkit/serve"
	"github.com/zero-day-ai/graphkit/splitnodes"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port      int
		useNeo4   bool
		graphID   string
		advertise string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph plugins over gRPC",
		Long: `Serve the split and preferential attachment plugins on the plugin host gRPC
service, together with the standard gRPC health service. Queries build into
one graph shared by all clients: in memory, or Neo4j with --neo4j.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := a.kit.Logger()

			tp := serve.NewTracerProvider(ctx, "graphkit")
			otel.SetTracerProvider(tp)
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Warn("tracer shutdown failed", "error", err)
				}
			}()

			sink, closeSink, err := a.openSink(ctx, useNeo4, graphID)
			if err != nil {
				return err
			}
			defer closeSink()

			sc := a.cfg.Serve
			if !cmd.Flags().Changed("port") {
				port = sc.GetPort()
			}
			opts := []serve.Option{
				serve.WithPort(port),
				serve.WithGracefulShutdown(sc.GetGracefulTimeout()),
				// Signals already cancel ctx.
				serve.WithSignals(false),
			}
			if sc != nil {
				opts = append(opts, serve.WithTLS(sc.TLSCertFile, sc.TLSKeyFile))
			}

			if advertise == "" {
				host, _ := os.Hostname()
				advertise = net.JoinHostPort(host, strconv.Itoa(port))
			}
			deregister, err := a.announce(ctx, discovery.Instance{
				Kind:       discovery.KindHost,
				Name:       "graphkit",
				InstanceID: uuid.NewString(),
				Endpoint:   advertise,
				Plugins:    []string{prefattach.PluginName, splitnodes.PluginName},
				StartedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			defer deregister()

			return a.kit.Serve(ctx, sink, a.cfg.Preferences, opts...)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port (default from config, then 50051)")
	cmd.Flags().BoolVar(&useNeo4, "neo4j", false, "build into the configured Neo4j database")
	cmd.Flags().StringVar(&graphID, "graph-id", "", "neo4j graph id to build into")
	cmd.Flags().StringVar(&advertise, "advertise", "", "host:port announced through discovery (default: hostname and port)")
	return cmd
}
