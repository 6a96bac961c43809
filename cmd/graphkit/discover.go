package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit"
	"github.com/zero-day-ai/graphkit/component"
	"github.com/zero-day-ai/graphkit/discovery"
	"github.com/zero-day-ai/graphkit/plugin"
)

func newDiscoverCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List plugin hosts or merge workers announced in etcd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Discovery == nil {
				return plugin.NewConfigurationError("graphkit.discover", component.ErrDiscoveryNotConfigured)
			}
			logger := a.kit.Logger()

			cli, err := a.cfg.Discovery.Dial()
			if err != nil {
				return err
			}
			defer graphkit.CloseWithLog(cli, logger, "etcd client")

			reg := discovery.New(cli, a.cfg.Discovery.Options()...)
			defer graphkit.CloseWithLog(reg, logger, "discovery registry")

			instances, err := reg.Discover(cmd.Context(), kind, "")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), instances)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", discovery.KindHost, "host or worker")
	return cmd
}
