package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/projectcapital/capital/internal/daemon"
	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/pkg/config"
)

type loader func() (config.Config, error)

func newServeCmd(registry *plugins.Registry, logger *slog.Logger, load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and the bundled spending backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return daemon.New(registry, nil, logger).Run(cmd.Context(), cfg)
		},
	}
}
