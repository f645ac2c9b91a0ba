package webclient

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// ErrorKind is the diagnostic class of a transport failure.
type ErrorKind int

const (
	ErrorOther ErrorKind = iota
	ErrorConnectionRefused
	ErrorNameResolution
	ErrorTimeout
	ErrorCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionRefused:
		return "connection_refused"
	case ErrorNameResolution:
		return "name_resolution"
	case ErrorTimeout:
		return "timeout"
	case ErrorCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// ClassifyError inspects a transport error chain. DNS errors are checked
// before timeouts because a resolver timeout is still a resolution failure.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorOther
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorNameResolution
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorConnectionRefused
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorOther
}
