package scanclient

import (
	"fmt"

	"github.com/raysh454/threatcheck/internal/webclient"
)

// Op names one of the three remote operations.
type Op string

const (
	OpSubmitURL       Op = "submit_url"
	OpGetAnalysisByID Op = "get_analysis"
	OpGetAnalysisHash Op = "get_hash"
)

const maxErrorBody = 512

// SubmissionError means the remote rejected a URL submission or returned no
// analysis handle.
type SubmissionError struct {
	StatusCode int
	Body       string
	Reason     string
	Err        error
}

func (e *SubmissionError) Error() string {
	return describe("submit url", e.StatusCode, e.Body, e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// RetrievalError means an analysis lookup (by handle or by hash) was rejected
// or returned something that is not a verdict.
type RetrievalError struct {
	Op         Op
	StatusCode int
	Body       string
	Reason     string
	Err        error
}

func (e *RetrievalError) Error() string {
	return describe(string(e.Op), e.StatusCode, e.Body, e.Reason, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// TransportError means no HTTP exchange completed. Kind is for diagnostics
// only; callers treat every kind the same way.
type TransportError struct {
	Op   Op
	Kind webclient.ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func describe(op string, status int, body, reason string, err error) string {
	switch {
	case status != 0 && body != "":
		return fmt.Sprintf("%s: unexpected status %d: %s", op, status, body)
	case status != 0:
		return fmt.Sprintf("%s: unexpected status %d", op, status)
	case err != nil && reason != "":
		return fmt.Sprintf("%s: %s: %v", op, reason, err)
	case err != nil:
		return fmt.Sprintf("%s: %v", op, err)
	default:
		return fmt.Sprintf("%s: %s", op, reason)
	}
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
