package verifier

import "time"

// Config holds the poll policy.
type Config struct {
	// PollDelay is the wait between a URL submission and the first retrieval.
	PollDelay time.Duration `yaml:"poll_delay"`

	// MaxAttempts bounds retrievals per URL. 1 means a single poll whose
	// result is surfaced as-is.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxBackoff caps the exponential wait between retrievals.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// CanonicalizeURLs submits URLs in canonical form (lowercase host,
	// punycode, no fragment or default port).
	CanonicalizeURLs bool `yaml:"canonicalize_urls"`

	// DropTrackingParams strips utm_*, gclid, fbclid and similar query
	// parameters while canonicalizing. Off by default.
	DropTrackingParams bool `yaml:"drop_tracking_params"`

	// BatchConcurrency is the default parallelism for VerifyBatch.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// DefaultConfig returns the single-poll policy with a one second wait.
func DefaultConfig() Config {
	return Config{
		PollDelay:        time.Second,
		MaxAttempts:      1,
		MaxBackoff:       8 * time.Second,
		CanonicalizeURLs: true,
		BatchConcurrency: 4,
	}
}

func (c Config) normalized() Config {
	if c.PollDelay < 0 {
		c.PollDelay = 0
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.MaxBackoff < c.PollDelay {
		c.MaxBackoff = c.PollDelay
	}
	if c.BatchConcurrency < 1 {
		c.BatchConcurrency = 1
	}
	return c
}
