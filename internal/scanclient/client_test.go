package scanclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/scanclient"
	"github.com/raysh454/threatcheck/internal/webclient"
)

func newClient(t *testing.T, ts *httptest.Server, cfg scanclient.Config) *scanclient.HTTPClient {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = wc.Close() })
	if cfg.BaseURL == "" {
		cfg.BaseURL = ts.URL + "/"
	}
	if cfg.RoutePrefix == "" {
		cfg.RoutePrefix = "VirusTotal"
	}
	c, err := scanclient.NewHTTPClient(cfg, wc, logging.Nop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return c
}

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	defer wc.Close()

	for _, base := range []string{"ftp://scanner/", "http://", "://nope"} {
		if _, err := scanclient.NewHTTPClient(scanclient.Config{BaseURL: base}, wc, nil); err == nil {
			t.Errorf("expected error for base %q", base)
		}
	}
	if _, err := scanclient.NewHTTPClient(scanclient.Config{}, nil, nil); err == nil {
		t.Error("expected error for nil webclient")
	}
}

func TestSubmitURL_SendsJSONAndReturnsHandle(t *testing.T) {
	t.Parallel()
	var gotPath, gotCT, gotKey, gotUA string
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		gotKey = r.Header.Get("X-API-Key")
		gotUA = r.Header.Get("User-Agent")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"analysisId":"u-abc-123"}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{APIKey: "k1", UserAgent: "threatcheck-test"})
	handle, err := c.SubmitURL(context.Background(), "https://example.com/a?b=c")
	if err != nil {
		t.Fatalf("SubmitURL: %v", err)
	}
	if handle != "u-abc-123" {
		t.Errorf("handle = %q", handle)
	}
	if gotPath != "POST /VirusTotal/url" {
		t.Errorf("request = %q", gotPath)
	}
	if gotCT != "application/json" {
		t.Errorf("content type = %q", gotCT)
	}
	if gotKey != "k1" || gotUA != "threatcheck-test" {
		t.Errorf("headers key=%q ua=%q", gotKey, gotUA)
	}
	if gotBody["url"] != "https://example.com/a?b=c" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSubmitURL_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	t.Parallel()
	var present bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Api-Key"]
		_, _ = io.WriteString(w, `{"analysisId":"x"}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	if _, err := c.SubmitURL(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("SubmitURL: %v", err)
	}
	if present {
		t.Error("X-API-Key sent without a configured key")
	}
}

func TestSubmitURL_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, "overloaded"},
		{"rejected", http.StatusBadRequest, `{"error":"bad url"}`},
		{"empty id", http.StatusOK, `{"analysisId":""}`},
		{"missing id", http.StatusOK, `{}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			c := newClient(t, ts, scanclient.Config{})
			handle, err := c.SubmitURL(context.Background(), "https://example.com")
			if handle != "" {
				t.Errorf("expected empty handle, got %q", handle)
			}
			var subErr *scanclient.SubmissionError
			if !errors.As(err, &subErr) {
				t.Fatalf("expected SubmissionError, got %T: %v", err, err)
			}
			if tt.status != http.StatusOK && subErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", subErr.StatusCode, tt.status)
			}
		})
	}
}

func TestGetAnalysisByID_DecodesCounters(t *testing.T) {
	t.Parallel()
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"malicious":2,"suspicious":1,"undetected":60,"harmless":7,
			"timeout":3,"confirmed_timeout":1,"failure":4,"type_unsupported":5}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	got, err := c.GetAnalysisByID(context.Background(), "u-1/2")
	if err != nil {
		t.Fatalf("GetAnalysisByID: %v", err)
	}
	want := model.ScanCounters{
		Malicious: 2, Suspicious: 1, Undetected: 60, Harmless: 7,
		Timeout: 3, ConfirmedTimeout: 1, Failure: 4, TypeUnsupported: 5,
	}
	if got != want {
		t.Errorf("counters = %+v, want %+v", got, want)
	}
	if gotPath != "GET /VirusTotal/analysis/u-1%2F2" {
		t.Errorf("request = %q", gotPath)
	}
}

func TestGetAnalysisByHash_Path(t *testing.T) {
	t.Parallel()
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"malicious":0,"suspicious":0,"harmless":70}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	got, err := c.GetAnalysisByHash(context.Background(), "44d88612fea8a8f36de82e1278abb02f")
	if err != nil {
		t.Fatalf("GetAnalysisByHash: %v", err)
	}
	if got.Harmless != 70 || got.Malicious != 0 {
		t.Errorf("counters = %+v", got)
	}
	if gotPath != "/VirusTotal/hash/44d88612fea8a8f36de82e1278abb02f" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestGetAnalysis_NestedStats(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/hash/") {
			_, _ = io.WriteString(w, `{"data":{"attributes":{"last_analysis_stats":{"malicious":9,"suspicious":0}}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"attributes":{"stats":{"malicious":0,"suspicious":3}}}}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	byID, err := c.GetAnalysisByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetAnalysisByID: %v", err)
	}
	if byID.Suspicious != 3 {
		t.Errorf("suspicious = %d", byID.Suspicious)
	}
	byHash, err := c.GetAnalysisByHash(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetAnalysisByHash: %v", err)
	}
	if byHash.Malicious != 9 {
		t.Errorf("malicious = %d", byHash.Malicious)
	}
}

func TestGetAnalysis_RetrievalFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, "no such analysis"},
		{"server error", http.StatusInternalServerError, ""},
		{"garbage", http.StatusOK, "not json"},
		{"null", http.StatusOK, "null"},
		{"empty object", http.StatusOK, "{}"},
		{"missing suspicious", http.StatusOK, `{"malicious":0}`},
		{"null gate counters", http.StatusOK, `{"malicious":null,"suspicious":null,"harmless":70}`},
		{"null suspicious", http.StatusOK, `{"malicious":0,"suspicious":null}`},
		{"nested null stats", http.StatusOK, `{"data":{"attributes":{"stats":{"malicious":null,"suspicious":null}}}}`},
		{"negative counter", http.StatusOK, `{"malicious":-1,"suspicious":0}`},
		{"wrong type", http.StatusOK, `{"malicious":"many","suspicious":0}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			c := newClient(t, ts, scanclient.Config{})
			for _, call := range []func() (model.ScanCounters, error){
				func() (model.ScanCounters, error) { return c.GetAnalysisByID(context.Background(), "id") },
				func() (model.ScanCounters, error) { return c.GetAnalysisByHash(context.Background(), "abc") },
			} {
				got, err := call()
				var rErr *scanclient.RetrievalError
				if !errors.As(err, &rErr) {
					t.Fatalf("expected RetrievalError, got %T: %v", err, err)
				}
				if got != (model.ScanCounters{}) {
					t.Errorf("expected zero counters on error, got %+v", got)
				}
			}
		})
	}
}

func TestGetAnalysis_EmptyArguments(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	var rErr *scanclient.RetrievalError
	if _, err := c.GetAnalysisByID(context.Background(), " "); !errors.As(err, &rErr) {
		t.Errorf("expected RetrievalError for empty handle, got %v", err)
	}
	if _, err := c.GetAnalysisByHash(context.Background(), ""); !errors.As(err, &rErr) {
		t.Errorf("expected RetrievalError for empty hash, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("remote contacted %d times for empty arguments", hits.Load())
	}
}

func TestTransportError_ConnectionRefused(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL + "/"
	ts.Close()

	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), &http.Client{Timeout: 2 * time.Second})
	defer wc.Close()
	c, err := scanclient.NewHTTPClient(scanclient.Config{BaseURL: base}, wc, logging.Nop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = c.SubmitURL(context.Background(), "https://example.com")
	var tErr *scanclient.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if tErr.Op != scanclient.OpSubmitURL {
		t.Errorf("Op = %s", tErr.Op)
	}
	if tErr.Kind != webclient.ErrorConnectionRefused {
		t.Errorf("Kind = %s", tErr.Kind)
	}
}

func TestTransportError_Canceled(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"malicious":0,"suspicious":0}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, scanclient.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetAnalysisByHash(ctx, "abc")
	var tErr *scanclient.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if tErr.Kind != webclient.ErrorCanceled {
		t.Errorf("Kind = %s", tErr.Kind)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in chain")
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("z", 2000)
	tests := []struct {
		err  error
		want string
	}{
		{&scanclient.SubmissionError{StatusCode: 503, Body: "down"}, "submit url: unexpected status 503: down"},
		{&scanclient.SubmissionError{Reason: "empty analysis id"}, "submit url: empty analysis id"},
		{&scanclient.RetrievalError{Op: scanclient.OpGetAnalysisHash, StatusCode: 404}, "get_hash: unexpected status 404"},
		{&scanclient.RetrievalError{Op: scanclient.OpGetAnalysisByID, Reason: "decode response", Err: errors.New("eof")}, "get_analysis: decode response: eof"},
		{&scanclient.TransportError{Op: scanclient.OpSubmitURL, Kind: webclient.ErrorTimeout, Err: errors.New("slow")}, "submit_url: transport timeout: slow"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, long)
	}))
	defer ts.Close()
	c := newClient(t, ts, scanclient.Config{})
	_, err := c.GetAnalysisByID(context.Background(), "x")
	var rErr *scanclient.RetrievalError
	if !errors.As(err, &rErr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if len(rErr.Body) > 600 {
		t.Errorf("body not truncated: %d bytes", len(rErr.Body))
	}
}
