// Command mockscanner runs an in-memory stand-in for the reputation service.
//
// Usage:
//
//	mockscanner --addr :7205 --delay 2s --fixtures fixtures.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/mockscanner"
)

func newRoot() *cobra.Command {
	var (
		fixturesPath string
		verbose      bool
	)
	cfg := mockscanner.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "mockscanner",
		Short:         "Serve canned reputation verdicts for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixturesPath != "" {
				fx, err := mockscanner.LoadFixtures(fixturesPath)
				if err != nil {
					return err
				}
				// File fixtures take precedence over the built-in set.
				cfg.Fixtures = append(fx, cfg.Fixtures...)
			}

			level := logging.LevelInfo
			if verbose {
				level = logging.LevelDebug
			}
			logger := logging.NewLogger(os.Stdout, "mockscanner", level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := mockscanner.New(cfg, logger)
			fmt.Fprintf(cmd.OutOrStdout(), "mock scanner on %s, routes under /%s (%d fixtures)\n",
				cfg.ListenAddr, cfg.RoutePrefix, len(cfg.Fixtures))
			return s.ListenAndServe(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address")
	f.StringVar(&cfg.RoutePrefix, "prefix", cfg.RoutePrefix, "Route prefix in front of url, analysis and hash")
	f.DurationVar(&cfg.CompletionDelay, "delay", cfg.CompletionDelay, "How long a submitted URL stays pending")
	f.IntVar(&cfg.PendingStatus, "pending-status", 0, "HTTP status for pending analyses (0 serves zero counters)")
	f.StringVar(&cfg.APIKey, "api-key", os.Getenv("MOCKSCANNER_API_KEY"), "Require this X-API-Key")
	f.StringVar(&fixturesPath, "fixtures", "", "YAML file with extra fixtures")
	f.BoolVarP(&verbose, "verbose", "v", false, "Log every request")
	return cmd
}

func main() {
	if err := newRoot().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
