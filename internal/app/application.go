package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/metrics"
	"github.com/raysh454/threatcheck/internal/scanclient"
	"github.com/raysh454/threatcheck/internal/verifier"
	"github.com/raysh454/threatcheck/internal/webclient"
)

// Application is the global runtime state container. It holds the config and
// the services shared by the CLI and the API server. Pass Application into
// modules that need access to the global state rather than using
// package-level variables.
type Application struct {
	Config *Config

	Logger     logging.Logger
	Metrics    *metrics.Recorder
	WebClient  webclient.WebClient
	ScanClient scanclient.Client
	Verifier   *verifier.Verifier
	Orch       *Orchestrator
}

// Option customizes NewApplication.
type Option func(*options)

type options struct {
	logger     logging.Logger
	scanClient scanclient.Client
	metrics    *metrics.Recorder
}

// WithLogger replaces the JSON logger built from the config.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithScanClient bypasses the HTTP transport, mainly for tests.
func WithScanClient(c scanclient.Client) Option {
	return func(o *options) { o.scanClient = c }
}

// WithMetrics uses an existing recorder instead of creating a new registry.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

// NewApplication constructs the logger, transport, scan client, verifier and
// job orchestrator described by cfg.
func NewApplication(cfg *Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, "threatcheck", cfg.LogLevel())
	}
	rec := o.metrics
	if rec == nil {
		rec = metrics.New()
	}

	a := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: rec,
	}

	if o.scanClient != nil {
		a.ScanClient = o.scanClient
	} else {
		wc, err := webclient.NewWebClient(cfg.Scanner.Transport, logger)
		if err != nil {
			return nil, fmt.Errorf("creating web client: %w", err)
		}
		sc, err := scanclient.NewHTTPClient(cfg.Scanner.Client, wc, logger)
		if err != nil {
			_ = wc.Close()
			return nil, fmt.Errorf("creating scan client: %w", err)
		}
		a.WebClient = wc
		a.ScanClient = sc
	}

	a.Verifier = verifier.New(a.ScanClient, cfg.Verifier, logger, verifier.WithMetrics(rec))
	a.Orch = NewOrchestrator(cfg, a.Verifier, rec, logger)

	logger.Info("application initialized",
		logging.Field{Key: "scanner", Value: cfg.Scanner.Client.BaseURL},
		logging.Field{Key: "max_attempts", Value: a.Verifier.Config().MaxAttempts})
	return a, nil
}

// Shutdown stops background jobs and releases the transport.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	// Ask orchestrator to shut down first with a bounded timeout.
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if a.Orch != nil {
			a.Orch.Close()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.Logger.Warn("orchestrator shutdown timed out", logging.Field{Key: "error", Value: shutdownCtx.Err().Error()})
	}

	if a.WebClient != nil {
		if err := a.WebClient.Close(); err != nil {
			return fmt.Errorf("closing web client: %w", err)
		}
	}
	return nil
}
