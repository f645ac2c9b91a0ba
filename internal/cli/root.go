// Package cli implements the threatcheck command tree.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/logging"
)

type rootFlags struct {
	configPath string
	scannerURL string
	jsonOut    bool
	attempts   int
	pollDelay  time.Duration
	verbose    bool
}

// NewRoot builds the command tree. opts are passed to every Application the
// commands create.
func NewRoot(version string, opts ...app.Option) *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "threatcheck",
		Short:         "threatcheck: fail-closed URL and file reputation checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("threatcheck {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", getenvDefault("THREATCHECK_CONFIG", ""), "Path to config YAML")
	pf.StringVar(&flags.scannerURL, "scanner-url", "", "Reputation service base URL (overrides config)")
	pf.BoolVar(&flags.jsonOut, "json", false, "Print the result as JSON")
	pf.IntVar(&flags.attempts, "attempts", 0, "Maximum analysis retrievals per URL (overrides config)")
	pf.DurationVar(&flags.pollDelay, "poll-delay", 0, "Wait between URL submission and retrieval (overrides config)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log at debug level to stderr")

	cmd.AddCommand(newURLCmd(flags, opts))
	cmd.AddCommand(newHashCmd(flags, opts))
	cmd.AddCommand(newFileCmd(flags, opts))
	cmd.AddCommand(newServeCmd(flags, opts))

	return cmd
}

// loadConfig reads the config file and applies flag overrides that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*app.Config, error) {
	cfg, err := app.Load(flags.configPath)
	if err != nil {
		return nil, &ExitError{code: ExitCodeError, message: err.Error()}
	}

	pf := cmd.Flags()
	if pf.Changed("scanner-url") {
		cfg.Scanner.Client.BaseURL = strings.TrimSpace(flags.scannerURL)
	}
	if pf.Changed("attempts") {
		if flags.attempts < 1 {
			return nil, &ExitError{code: ExitCodeError, message: "--attempts must be at least 1"}
		}
		cfg.Verifier.MaxAttempts = flags.attempts
	}
	if pf.Changed("poll-delay") {
		if flags.pollDelay < 0 {
			return nil, &ExitError{code: ExitCodeError, message: "--poll-delay must not be negative"}
		}
		cfg.Verifier.PollDelay = flags.pollDelay
	}
	if flags.verbose {
		cfg.Logging.Level = logging.LevelDebug.String()
	}
	return cfg, nil
}

// cliLogger writes to stderr. Verify commands stay quiet below warn unless
// --verbose is set, so stdout carries only the verdict.
func cliLogger(cmd *cobra.Command, cfg *app.Config, flags *rootFlags) logging.Logger {
	level := cfg.LogLevel()
	if !flags.verbose && level < logging.LevelWarn {
		level = logging.LevelWarn
	}
	return logging.NewLogger(cmd.ErrOrStderr(), "threatcheck", level)
}

func newApplication(cmd *cobra.Command, flags *rootFlags, opts []app.Option) (*app.Application, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	all := append([]app.Option{app.WithLogger(cliLogger(cmd, cfg, flags))}, opts...)
	a, err := app.NewApplication(cfg, all...)
	if err != nil {
		return nil, &ExitError{code: ExitCodeError, message: fmt.Sprintf("initializing: %v", err)}
	}
	return a, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
