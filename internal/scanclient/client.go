// Package scanclient binds the three remote reputation operations: submit a
// URL, fetch an analysis by handle, and look up a content hash.
package scanclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/webclient"
)

// Client is the contract the verifier depends on. Implementations must be
// stateless and safe for concurrent use.
type Client interface {
	// SubmitURL queues a URL for analysis and returns the handle to poll.
	SubmitURL(ctx context.Context, target string) (model.AnalysisHandle, error)

	// GetAnalysisByID fetches the counters of a submitted analysis.
	GetAnalysisByID(ctx context.Context, handle model.AnalysisHandle) (model.ScanCounters, error)

	// GetAnalysisByHash looks a content hash up in the remote index. There is
	// no submission phase.
	GetAnalysisByHash(ctx context.Context, hash string) (model.ScanCounters, error)
}

const (
	defaultBaseURL     = "https://192.168.0.175:7205/"
	defaultRoutePrefix = "VirusTotal"
	defaultUserAgent   = "threatcheck/0.1"
)

// Config locates the remote service.
type Config struct {
	BaseURL     string `yaml:"base_url"`
	RoutePrefix string `yaml:"route_prefix"`
	APIKey      string `yaml:"api_key"`
	UserAgent   string `yaml:"user_agent"`
}

// DefaultConfig matches the default deployment of the reputation proxy.
func DefaultConfig() Config {
	return Config{
		BaseURL:     defaultBaseURL,
		RoutePrefix: defaultRoutePrefix,
		UserAgent:   defaultUserAgent,
	}
}

// HTTPClient implements Client over a webclient.WebClient.
type HTTPClient struct {
	base      string
	apiKey    string
	userAgent string
	wc        webclient.WebClient
	logger    logging.Logger
}

// NewHTTPClient validates cfg and returns a client that sends every request
// through wc.
func NewHTTPClient(cfg Config, wc webclient.WebClient, logger logging.Logger) (*HTTPClient, error) {
	if wc == nil {
		return nil, errors.New("scanclient: nil webclient")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("scanclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scanclient: base url %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("scanclient: base url %q has no host", baseURL)
	}

	prefix := strings.Trim(cfg.RoutePrefix, "/")
	base := strings.TrimRight(u.String(), "/")
	if prefix != "" {
		base += "/" + prefix
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &HTTPClient{
		base:      base,
		apiKey:    cfg.APIKey,
		userAgent: ua,
		wc:        wc,
		logger:    logger.With(logging.Field{Key: "component", Value: "scanclient"}),
	}, nil
}

func (c *HTTPClient) headers(withBody bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", c.userAgent)
	if withBody {
		h.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		h.Set("X-API-Key", c.apiKey)
	}
	return h
}

func (c *HTTPClient) transportError(op Op, err error) error {
	kind := webclient.ClassifyError(err)
	c.logger.Warn("scan service unreachable",
		logging.Field{Key: "op", Value: string(op)},
		logging.Field{Key: "error_kind", Value: kind.String()},
		logging.Field{Key: "error", Value: err.Error()})
	return &TransportError{Op: op, Kind: kind, Err: err}
}

// SubmitURL posts {"url": target} and returns the analysisId.
func (c *HTTPClient) SubmitURL(ctx context.Context, target string) (model.AnalysisHandle, error) {
	body, err := json.Marshal(submitRequest{URL: target})
	if err != nil {
		return "", &SubmissionError{Reason: "marshal request", Err: err}
	}

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     c.base + "/url",
		Headers: c.headers(true),
		Body:    body,
	})
	if err != nil {
		return "", c.transportError(OpSubmitURL, err)
	}

	if !resp.Success() {
		c.logger.Warn("url submission failed",
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "body", Value: truncateBody(resp.Body)})
		return "", &SubmissionError{StatusCode: resp.StatusCode, Body: truncateBody(resp.Body)}
	}

	var out submitResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", &SubmissionError{Reason: "decode response", Err: err}
	}
	id := strings.TrimSpace(out.AnalysisID)
	if id == "" {
		c.logger.Warn("no analysis id received from submission")
		return "", &SubmissionError{Reason: "empty analysis id"}
	}

	c.logger.Debug("url submitted", logging.Field{Key: "analysis_id", Value: id})
	return model.AnalysisHandle(id), nil
}

// GetAnalysisByID fetches {prefix}/analysis/{id}.
func (c *HTTPClient) GetAnalysisByID(ctx context.Context, handle model.AnalysisHandle) (model.ScanCounters, error) {
	if strings.TrimSpace(string(handle)) == "" {
		return model.ScanCounters{}, &RetrievalError{Op: OpGetAnalysisByID, Reason: "empty analysis handle"}
	}
	return c.fetchCounters(ctx, OpGetAnalysisByID, c.base+"/analysis/"+url.PathEscape(string(handle)))
}

// GetAnalysisByHash fetches {prefix}/hash/{hash}.
func (c *HTTPClient) GetAnalysisByHash(ctx context.Context, hash string) (model.ScanCounters, error) {
	if strings.TrimSpace(hash) == "" {
		return model.ScanCounters{}, &RetrievalError{Op: OpGetAnalysisHash, Reason: "empty hash"}
	}
	return c.fetchCounters(ctx, OpGetAnalysisHash, c.base+"/hash/"+url.PathEscape(hash))
}

func (c *HTTPClient) fetchCounters(ctx context.Context, op Op, target string) (model.ScanCounters, error) {
	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: c.headers(false),
	})
	if err != nil {
		return model.ScanCounters{}, c.transportError(op, err)
	}

	if !resp.Success() {
		c.logger.Warn("analysis retrieval failed",
			logging.Field{Key: "op", Value: string(op)},
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "body", Value: truncateBody(resp.Body)})
		return model.ScanCounters{}, &RetrievalError{Op: op, StatusCode: resp.StatusCode, Body: truncateBody(resp.Body)}
	}

	counters, err := decodeCounters(resp.Body)
	if err != nil {
		c.logger.Warn("analysis response not usable",
			logging.Field{Key: "op", Value: string(op)},
			logging.Field{Key: "error", Value: err.Error()})
		return model.ScanCounters{}, &RetrievalError{Op: op, Reason: "decode response", Err: err}
	}
	return counters, nil
}
