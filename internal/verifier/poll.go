package verifier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/scanclient"
)

// errPending marks an all-zero poll while retries remain.
var errPending = errors.New("analysis pending")

// poll waits PollDelay and retrieves the analysis. With MaxAttempts > 1 it
// keeps retrieving, with exponential backoff capped at MaxBackoff, while the
// remote reports the analysis as missing, busy or empty. The last outcome is
// returned as-is once attempts run out.
func (v *Verifier) poll(ctx context.Context, handle model.AnalysisHandle, obs Observer) (model.ScanCounters, int, error) {
	obs.emit(StateWaiting)
	if err := sleep(ctx, v.cfg.PollDelay); err != nil {
		return model.ScanCounters{}, 0, canceled(scanclient.OpGetAnalysisByID, err)
	}

	attempts := 0
	retrieve := func() (model.ScanCounters, error) {
		attempts++
		obs.emit(StateRetrieving)
		if v.metrics != nil {
			v.metrics.ObservePollAttempt()
		}
		return v.client.GetAnalysisByID(ctx, handle)
	}

	if v.cfg.MaxAttempts <= 1 {
		counters, err := retrieve()
		return counters, attempts, err
	}

	var counters model.ScanCounters
	op := func() error {
		c, err := retrieve()
		counters = c
		switch {
		case err != nil && retryable(err):
			return err
		case err != nil:
			return backoff.Permanent(err)
		case c.IsZero():
			return errPending
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		v.logger.Debug("analysis not ready, retrying",
			logging.Field{Key: "analysis_id", Value: handle.String()},
			logging.Field{Key: "attempt", Value: attempts},
			logging.Field{Key: "reason", Value: err},
			logging.Field{Key: "next_ms", Value: next.Milliseconds()})
		obs.emit(StateWaiting)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(v.newBackOff(), ctx), notify)
	switch {
	case err == nil, errors.Is(err, errPending):
		return counters, attempts, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		var tErr *scanclient.TransportError
		if errors.As(err, &tErr) {
			return model.ScanCounters{}, attempts, err
		}
		return model.ScanCounters{}, attempts, canceled(scanclient.OpGetAnalysisByID, err)
	default:
		return model.ScanCounters{}, attempts, err
	}
}

func (v *Verifier) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.cfg.PollDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = backoff.DefaultInitialInterval
	}
	b.MaxInterval = v.cfg.MaxBackoff
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(v.cfg.MaxAttempts-1))
}

// retryable reports whether a retrieval failure may clear on its own.
func retryable(err error) bool {
	var rErr *scanclient.RetrievalError
	if !errors.As(err, &rErr) {
		return false
	}
	switch rErr.StatusCode {
	case http.StatusNotFound, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return rErr.StatusCode >= 500
}
