package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/projectcapital/capital/internal/daemon"
	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/pkg/render"
)

func newAskCmd(registry *plugins.Registry, logger *slog.Logger, load loader) *cobra.Command {
	var (
		out  string
		size render.Size
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and write the chart as SVG",
		Long: "Translates the question, queries the configured backend and draws the chart.\n" +
			"The backend must already be running, for example with 'capital serve'.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			r := daemon.New(registry, nil, logger)
			c, err := r.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := r.Ask(cmd.Context(), c, strings.Join(args, " "), size)
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("question is empty")
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s chart, %d points from %s\n", res.Kind, res.Points, res.Endpoint)
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.SVG)
				return err
			}
			if err := os.WriteFile(out, []byte(res.SVG), 0o644); err != nil {
				return fmt.Errorf("writing chart: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&size.Width, "width", 800, "chart width in pixels")
	cmd.Flags().IntVar(&size.Height, "height", 500, "chart height in pixels")
	return cmd
}
