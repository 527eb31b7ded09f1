package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/pkg/config"
	"github.com/projectcapital/capital/pkg/llm/gemini"
	"github.com/projectcapital/capital/pkg/llm/openai"
	"github.com/projectcapital/capital/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	if err := config.LoadDotenv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	registry, err := newRegistry()
	if err != nil {
		logger.Error("failed to register plugins", "error", err)
		os.Exit(1)
	}

	// Cancel on SIGINT/SIGTERM so the server shuts down gracefully.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := newRootCmd(registry, logger).ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRegistry() (*plugins.Registry, error) {
	registry := plugins.NewRegistry()
	for _, p := range []plugins.ProviderPlugin{&gemini.Plugin{}, &openai.Plugin{}} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func newRootCmd(registry *plugins.Registry, logger *slog.Logger) *cobra.Command {
	if logger == nil {
		logger = slog.Default()
	}
	var configPath string

	root := &cobra.Command{
		Use:           "capital",
		Short:         "Ask questions about your spending and get charts back",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON config file (environment variables win over it)")

	load := func() (config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(
		newServeCmd(registry, logger, load),
		newAskCmd(registry, logger, load),
		newStatusCmd(registry, load),
		newExportCmd(registry, logger, load),
		newImportCmd(registry, logger, load),
	)
	return root
}
