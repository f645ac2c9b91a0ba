// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of Warn calls so far.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// Responses are looked up by exact URL; unknown URLs get a 404.
// Set Errors[url] to force a transport error for a specific URL.
type DummyWebClient struct {
	ResponseDelay time.Duration
	Responses     map[string]*webclient.Response
	Errors        map[string]error

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if err, ok := d.Errors[req.URL]; ok {
		return nil, err
	}
	if resp, ok := d.Responses[req.URL]; ok {
		cp := *resp
		cp.Request = req
		cp.FetchedAt = time.Now()
		return &cp, nil
	}
	return &webclient.Response{
		Request:    req,
		Body:       []byte("not found"),
		StatusCode: 404,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns how many requests reached the client.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── ScanClient ────────────────────────────────────────────────────────

// DummyScanClient implements scanclient.Client with overridable behaviour.
// Unset funcs return clean counters and handle "analysis-1".
type DummyScanClient struct {
	SubmitFunc func(ctx context.Context, url string) (model.AnalysisHandle, error)
	ByIDFunc   func(ctx context.Context, handle model.AnalysisHandle, attempt int) (model.ScanCounters, error)
	ByHashFunc func(ctx context.Context, hash string) (model.ScanCounters, error)

	mu         sync.Mutex
	Submitted  []string
	Polled     []model.AnalysisHandle
	HashLookup []string
}

func (d *DummyScanClient) SubmitURL(ctx context.Context, url string) (model.AnalysisHandle, error) {
	d.mu.Lock()
	d.Submitted = append(d.Submitted, url)
	d.mu.Unlock()
	if d.SubmitFunc != nil {
		return d.SubmitFunc(ctx, url)
	}
	return "analysis-1", nil
}

func (d *DummyScanClient) GetAnalysisByID(ctx context.Context, handle model.AnalysisHandle) (model.ScanCounters, error) {
	d.mu.Lock()
	d.Polled = append(d.Polled, handle)
	attempt := len(d.Polled)
	d.mu.Unlock()
	if d.ByIDFunc != nil {
		return d.ByIDFunc(ctx, handle, attempt)
	}
	return model.ScanCounters{Harmless: 70, Undetected: 10}, nil
}

func (d *DummyScanClient) GetAnalysisByHash(ctx context.Context, hash string) (model.ScanCounters, error) {
	d.mu.Lock()
	d.HashLookup = append(d.HashLookup, hash)
	d.mu.Unlock()
	if d.ByHashFunc != nil {
		return d.ByHashFunc(ctx, hash)
	}
	return model.ScanCounters{Harmless: 70, Undetected: 10}, nil
}

// Calls returns submit, poll and hash-lookup counts.
func (d *DummyScanClient) Calls() (submits, polls, hashes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Submitted), len(d.Polled), len(d.HashLookup)
}
