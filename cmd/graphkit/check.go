package main

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit/health"
	"github.com/zero-day-ai/graphkit/types"
)

var errUnhealthy = errors.New("one or more dependencies are unhealthy")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the dependencies named in the configuration",
		Long: `Check every dependency the configuration names: the catalog file, TLS files,
Redis, Neo4j and etcd. Sections that are not configured are not checked.
The command fails when any check is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks := a.checks(cmd.Context())
			report := struct {
				types.HealthStatus
				Checks []health.Named `json:"checks"`
			}{health.Report(checks...), checks}

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.IsUnhealthy() {
				return errUnhealthy
			}
			return nil
		},
	}
}

func (a *app) checks(ctx context.Context) []health.Named {
	cfg := a.cfg
	var out []health.Named
	add := func(name string, s types.HealthStatus) {
		out = append(out, health.Named{Name: name, Status: s})
	}

	add("catalog", types.NewHealthyStatus("catalog loaded"))
	if cfg.Catalog.File != "" {
		add("catalog.file", health.FileCheck(cfg.Catalog.File))
	}
	if cfg.Catalog.Etcd != nil {
		for _, ep := range cfg.Catalog.Etcd.Endpoints {
			add("catalog.etcd "+ep, health.EndpointCheck(ctx, ep, 2379))
		}
	}
	if cfg.Serve != nil && cfg.Serve.TLSCertFile != "" {
		add("serve.tls_cert_file", health.FileCheck(cfg.Serve.TLSCertFile))
		add("serve.tls_key_file", health.FileCheck(cfg.Serve.TLSKeyFile))
	}
	if cfg.Queue != nil {
		opts, err := redis.ParseURL(cfg.Queue.RedisURL)
		if err != nil {
			add("queue", types.NewUnhealthyStatus("invalid redis url", map[string]any{"error": err.Error()}))
		} else {
			client := redis.NewClient(opts)
			add("queue", health.RedisCheck(ctx, client))
			_ = client.Close()
		}
	}
	if cfg.Neo4j != nil {
		driver, err := cfg.Neo4j.Driver()
		if err != nil {
			add("neo4j", types.NewUnhealthyStatus("invalid neo4j settings", map[string]any{"error": err.Error()}))
		} else {
			add("neo4j", health.Neo4jCheck(ctx, driver))
			_ = driver.Close(ctx)
		}
	}
	if cfg.Discovery != nil {
		for _, ep := range cfg.Discovery.Endpoints {
			add("discovery "+ep, health.EndpointCheck(ctx, ep, 2379))
		}
	}
	return out
}
