package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 4 << 20
)

// Config holds what a backend needs to construct its transport. Base address
// and trust policy are supplied here so the scan client never deals with them.
type Config struct {
	Client Client `yaml:"backend"`

	// Timeout bounds one request/response exchange including reading the body.
	Timeout time.Duration `yaml:"timeout"`

	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	TLS TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"ca_file"`

	// InsecureSkipVerify disables certificate verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) maxResponseBytes() int64 {
	if c.MaxResponseBytes <= 0 {
		return defaultMaxResponseBytes
	}
	return c.MaxResponseBytes
}
