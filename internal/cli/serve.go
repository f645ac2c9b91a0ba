package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/server"
)

func newServeCmd(flags *rootFlags, opts []app.Option) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the verification HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}

			// The server logs every request, so it keeps the configured level.
			logger := logging.NewLogger(os.Stdout, "threatcheck", cfg.LogLevel())
			all := append([]app.Option{app.WithLogger(logger)}, opts...)
			application, err := app.NewApplication(cfg, all...)
			if err != nil {
				return &ExitError{code: ExitCodeError, message: fmt.Sprintf("initializing: %v", err)}
			}
			defer application.Shutdown(context.Background())

			s, err := server.NewServer(server.Config{App: application, Logger: logger})
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "threatcheck API listening on %s (scanner %s)\n",
				cfg.Server.ListenAddr, cfg.Scanner.Client.BaseURL)
			return s.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config and THREATCHECK_LISTEN_ADDR)")
	return cmd
}
