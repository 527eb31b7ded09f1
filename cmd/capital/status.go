package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/pkg/client"
	"github.com/projectcapital/capital/pkg/config"
	"github.com/projectcapital/capital/pkg/endpoint"
	"github.com/projectcapital/capital/pkg/spending/postgres"
)

func newStatusCmd(registry *plugins.Registry, load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the configuration and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runStatus(cmd.Context(), cmd.OutOrStdout(), registry, load)
			return nil
		},
	}
}

// runStatus checks the configuration, provider and backend.
func runStatus(ctx context.Context, w io.Writer, registry *plugins.Registry, load loader) bool {
	fmt.Fprintln(w, "=== Capital Status ===")
	fmt.Fprintln(w)

	allGood := true

	fmt.Fprint(w, "Configuration: ")
	cfg, err := load()
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		printFinalStatus(w, false)
		return false
	}
	fmt.Fprintf(w, "✓ user %s, %s mode\n", cfg.User, cfg.TranslateMode)

	checkProvider(w, registry, cfg, &allGood)
	checkStore(w, cfg, &allGood)
	if cfg.SpendingStore == config.StoreOff {
		checkBackend(ctx, w, cfg, &allGood)
	}

	printFinalStatus(w, allGood)
	return allGood
}

func checkProvider(w io.Writer, registry *plugins.Registry, cfg config.Config, allGood *bool) {
	fmt.Fprintf(w, "Provider (%s): ", cfg.LLMProvider)
	p, err := registry.Get(cfg.LLMProvider)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}
	providerCfg, err := cfg.ProviderConfig()
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}
	if _, err := p.NewGenerator(client.New(cfg.Timeout()), providerCfg, nil); err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Fprintf(w, "✓ %s\n", p.Description())
}

func checkStore(w io.Writer, cfg config.Config, allGood *bool) {
	fmt.Fprintf(w, "Spending store (%s): ", cfg.SpendingStore)
	switch cfg.SpendingStore {
	case config.StoreOff:
		fmt.Fprintf(w, "✓ external backend %s\n", cfg.BackendURL)
	case config.StoreMemory:
		fmt.Fprintf(w, "✓ demo data for %d\n", cfg.SeedYear)
	case config.StorePostgres:
		store, err := postgres.New(postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
			User:     cfg.PostgresConfig.User,
			Password: cfg.Password,
			SSLMode:  cfg.SSLMode,
		}, nil)
		if err != nil {
			fmt.Fprintf(w, "✗ %v\n", err)
			*allGood = false
			return
		}
		store.Close()
		fmt.Fprintf(w, "✓ connected to %s:%d/%s\n", cfg.Host, cfg.Port, cfg.Database)
	}
}

func checkBackend(ctx context.Context, w io.Writer, cfg config.Config, allGood *bool) {
	fmt.Fprintf(w, "Backend (%s): ", cfg.BackendURL)

	q, err := endpoint.New(endpoint.CategoryTotals, cfg.User, []string{"food"}, "", "")
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}
	u, err := q.URL(cfg.BackendURL)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	records, err := client.NewFetcher(client.New(cfg.Timeout()), nil).Fetch(ctx, u)
	var netErr *client.NetworkError
	switch {
	case errors.As(err, &netErr):
		fmt.Fprintf(w, "✗ unreachable: %v\n", err)
		*allGood = false
	case err != nil:
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
	default:
		fmt.Fprintf(w, "✓ %d records for %s\n", len(records), q.Path())
	}
}

func printFinalStatus(w io.Writer, allGood bool) {
	fmt.Fprintln(w)
	if allGood {
		fmt.Fprintln(w, "Status: ✓ Ready to run")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'capital serve' to start the dashboard.")
	} else {
		fmt.Fprintln(w, "Status: ✗ Configuration issues detected")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above, then run 'capital status' again.")
	}
}
