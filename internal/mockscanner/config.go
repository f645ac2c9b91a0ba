package mockscanner

import (
	"time"

	"github.com/raysh454/threatcheck/internal/model"
)

// Config holds configuration for the mock scanner.
type Config struct {
	// ListenAddr is the address the mock scanner listens on.
	ListenAddr string `yaml:"listen_addr"`

	// RoutePrefix is the path segment in front of url, analysis and hash.
	RoutePrefix string `yaml:"route_prefix"`

	// CompletionDelay is how long a submitted URL stays pending.
	CompletionDelay time.Duration `yaml:"completion_delay"`

	// PendingStatus is returned for pending analyses. 0 or 200 serve
	// all-zero counters, like the real service while queued.
	PendingStatus int `yaml:"pending_status"`

	// APIKey, when set, is required in the X-API-Key header.
	APIKey string `yaml:"api_key"`

	// DefaultURLCounters answer URLs that match no fixture.
	DefaultURLCounters model.ScanCounters `yaml:"default_url_counters"`

	// Fixtures are matched in order; the first hit wins.
	Fixtures []Fixture `yaml:"fixtures"`
}

// DefaultConfig returns a Config that mirrors the proxy route layout.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":7205",
		RoutePrefix:        "VirusTotal",
		DefaultURLCounters: model.ScanCounters{Harmless: 68, Undetected: 24},
		Fixtures:           DefaultFixtures(),
	}
}
