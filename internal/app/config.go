package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/scanclient"
	"github.com/raysh454/threatcheck/internal/verifier"
	"github.com/raysh454/threatcheck/internal/webclient"
)

// Environment variables that override file values.
const (
	EnvScannerURL    = "THREATCHECK_SCANNER_URL"
	EnvScannerAPIKey = "THREATCHECK_SCANNER_API_KEY"
	EnvListenAddr    = "THREATCHECK_LISTEN_ADDR"
	EnvLogLevel      = "THREATCHECK_LOG_LEVEL"
)

// Config is the runtime configuration shared by the CLI and the API server.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Scanner  ScannerConfig   `yaml:"scanner"`
	Verifier verifier.Config `yaml:"verifier"`
	Jobs     JobsConfig      `yaml:"jobs"`
	Logging  LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `yaml:"listen_addr"`

	// MaxUploadBytes caps multipart uploads on /verify/file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// AllowedOrigins lists browser origins accepted on /ws/verify in
	// addition to the API's own host. "*" accepts any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ScannerConfig describes how to reach the reputation service. The scan
// client and transport settings share one YAML block.
type ScannerConfig struct {
	Client    scanclient.Config `yaml:",inline"`
	Transport webclient.Config  `yaml:",inline"`
}

type JobsConfig struct {
	// Retention is how long finished jobs stay queryable.
	Retention time.Duration `yaml:"retention"`

	// EventBuffer is the per-job event channel capacity. Events are dropped
	// when a slow consumer lets it fill up.
	EventBuffer int `yaml:"event_buffer"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			MaxUploadBytes: 32 << 20,
		},
		Scanner: ScannerConfig{
			Client: scanclient.DefaultConfig(),
			Transport: webclient.Config{
				Client:  webclient.ClientNetHTTP,
				Timeout: 30 * time.Second,
			},
		},
		Verifier: verifier.DefaultConfig(),
		Jobs: JobsConfig{
			Retention:   10 * time.Minute,
			EventBuffer: 16,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file. An empty path yields the defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		if err := validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromBytes decodes YAML on top of the defaults, then applies environment
// overrides and validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if cfg.Scanner.Client.RoutePrefix == "" {
		cfg.Scanner.Client.RoutePrefix = def.Scanner.Client.RoutePrefix
	}
	if cfg.Scanner.Client.UserAgent == "" {
		cfg.Scanner.Client.UserAgent = def.Scanner.Client.UserAgent
	}
	if cfg.Scanner.Transport.Client == "" {
		cfg.Scanner.Transport.Client = def.Scanner.Transport.Client
	}
	if cfg.Scanner.Transport.Timeout <= 0 {
		cfg.Scanner.Transport.Timeout = def.Scanner.Transport.Timeout
	}
	if cfg.Jobs.Retention <= 0 {
		cfg.Jobs.Retention = def.Jobs.Retention
	}
	if cfg.Jobs.EventBuffer <= 0 {
		cfg.Jobs.EventBuffer = def.Jobs.EventBuffer
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvScannerURL)); v != "" {
		cfg.Scanner.Client.BaseURL = v
	}
	if v := os.Getenv(EnvScannerAPIKey); v != "" {
		cfg.Scanner.Client.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListenAddr)); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
}

func validate(cfg *Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Scanner.Client.BaseURL) == "" {
		errs = append(errs, errors.New("scanner.base_url is required"))
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if cfg.Verifier.PollDelay < 0 {
		errs = append(errs, errors.New("verifier.poll_delay must not be negative"))
	}
	if cfg.Verifier.MaxAttempts < 0 {
		errs = append(errs, errors.New("verifier.max_attempts must not be negative"))
	}
	if cfg.Verifier.BatchConcurrency < 0 {
		errs = append(errs, errors.New("verifier.batch_concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed logging level, falling back to info.
func (c *Config) LogLevel() logging.Level {
	lvl, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return lvl
}
