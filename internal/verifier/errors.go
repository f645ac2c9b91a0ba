package verifier

import (
	"errors"
	"fmt"

	"github.com/raysh454/threatcheck/internal/scanclient"
)

// ValidationError rejects a request before any network call. An empty Reason
// means the request named neither a URL nor a hash.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return "invalid request: no url or hash provided"
	}
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// UnexpectedError covers any fault outside the remote-call taxonomy,
// including recovered panics.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	if e.Err == nil {
		return "unexpected error"
	}
	return e.Err.Error()
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// ErrorKind is the coarse classification used in logs and metrics.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindSubmission
	KindRetrieval
	KindTransport
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindSubmission:
		return "submission"
	case KindRetrieval:
		return "retrieval"
	case KindTransport:
		return "transport"
	default:
		return "unexpected"
	}
}

// KindOf maps err onto the taxonomy. Errors of unknown type are unexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		vErr *ValidationError
		sErr *scanclient.SubmissionError
		rErr *scanclient.RetrievalError
		tErr *scanclient.TransportError
	)
	switch {
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &sErr):
		return KindSubmission
	case errors.As(err, &rErr):
		return KindRetrieval
	case errors.As(err, &tErr):
		return KindTransport
	default:
		return KindUnexpected
	}
}

// metricKind refines transport errors with their transport kind.
func metricKind(err error) string {
	var tErr *scanclient.TransportError
	if errors.As(err, &tErr) {
		return tErr.Kind.String()
	}
	return KindOf(err).String()
}
