package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/projectcapital/capital/internal/daemon"
	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/pkg/config"
	"github.com/projectcapital/capital/pkg/spending"
	"github.com/projectcapital/capital/pkg/spending/export"
)

func newExportCmd(registry *plugins.Registry, logger *slog.Logger, load loader) *cobra.Command {
	var (
		out    string
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured user's transactions as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.SpendingStore == config.StoreOff {
				return fmt.Errorf("export needs CAPITAL_SPENDING_STORE memory or postgres")
			}

			store, closeStore, err := daemon.New(registry, nil, logger).OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			txs, err := store.Transactions(cmd.Context(), cfg.User, limit)
			if err != nil {
				return fmt.Errorf("reading transactions: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, export.Format(format), txs); err != nil {
				return err
			}
			logger.Info("exported transactions", "user", cfg.User, "count", len(txs), "format", format)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "csv or json")
	cmd.Flags().IntVar(&limit, "limit", 0, "newest transactions to export (0 for all)")
	return cmd
}

func newImportCmd(registry *plugins.Registry, logger *slog.Logger, load loader) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load transactions from CSV into the postgres store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.SpendingStore != config.StorePostgres {
				return fmt.Errorf("import needs CAPITAL_SPENDING_STORE=postgres, got %q", cfg.SpendingStore)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			store, closeStore, err := daemon.New(registry, nil, logger).OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			dst, ok := store.(spending.Inserter)
			if !ok {
				return fmt.Errorf("store %s does not accept inserts", cfg.SpendingStore)
			}
			n, err := export.Import(cmd.Context(), f, cfg.User, dst, batchSize, logger)
			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d transactions for %s\n", n, cfg.User)
			return err
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", export.DefaultBatchSize, "rows per insert")
	return cmd
}
