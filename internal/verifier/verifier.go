// Package verifier turns a URL or content hash into a fail-closed safety
// verdict using a remote reputation service.
//
// A URL goes through submit, wait, retrieve and classify. A hash skips the
// submission and is looked up directly. Every failure folds into a result
// with IsSafe false; only counters returned by the remote can yield true.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/scanclient"
	"github.com/raysh454/threatcheck/internal/utils"
	"github.com/raysh454/threatcheck/internal/webclient"
)

// Metrics receives per-verification measurements. *metrics.Recorder
// satisfies it.
type Metrics interface {
	ObserveResult(target string, res model.CheckResult, elapsed time.Duration)
	ObserveError(kind string)
	ObservePollAttempt()
}

// Outcome is the success side of Check.
type Outcome struct {
	Target   string               // "url" or "hash"
	Subject  string               // the URL or hash actually sent
	Handle   model.AnalysisHandle // empty for hash lookups
	Attempts int                  // retrievals issued
	Counters model.ScanCounters
	Level    model.ThreatLevel
}

// Verifier holds no per-request state; one instance serves concurrent callers.
type Verifier struct {
	client  scanclient.Client
	cfg     Config
	logger  logging.Logger
	metrics Metrics
	now     func() time.Time
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithMetrics reports every verification to m.
func WithMetrics(m Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New builds a Verifier around client. A nil client is accepted and makes
// every non-invalid request end in an error result.
func New(client scanclient.Client, cfg Config, logger logging.Logger, opts ...Option) *Verifier {
	if logger == nil {
		logger = logging.Nop()
	}
	v := &Verifier{
		client: client,
		cfg:    cfg.normalized(),
		logger: logger.With(logging.Field{Key: "component", Value: "verifier"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Config returns the normalized configuration in use.
func (v *Verifier) Config() Config { return v.cfg }

// Verify always returns a result; errors and panics become fail-closed
// results.
func (v *Verifier) Verify(ctx context.Context, req model.CheckRequest) model.CheckResult {
	return v.VerifyObserved(ctx, req, nil)
}

// VerifyObserved is Verify with state transitions reported to obs.
func (v *Verifier) VerifyObserved(ctx context.Context, req model.CheckRequest, obs Observer) model.CheckResult {
	start := time.Now()
	out, err := v.check(ctx, req, obs)
	res := Fold(out, err, v.now())

	if err != nil && v.metrics != nil {
		v.metrics.ObserveError(metricKind(err))
	}
	if v.metrics != nil {
		v.metrics.ObserveResult(targetKind(req), res, time.Since(start))
	}

	v.logger.Info("verification finished",
		logging.Field{Key: "target", Value: targetKind(req)},
		logging.Field{Key: "outcome", Value: res.Outcome()},
		logging.Field{Key: "error_kind", Value: KindOf(err).String()},
		logging.Field{Key: "elapsed_ms", Value: time.Since(start).Milliseconds()})
	return res
}

// Check is the error-returning form of Verify.
func (v *Verifier) Check(ctx context.Context, req model.CheckRequest) (Outcome, error) {
	return v.check(ctx, req, nil)
}

// Fold maps a Check outcome onto the uniform result shape.
func Fold(out Outcome, err error, at time.Time) model.CheckResult {
	if err == nil {
		return model.NewClassifiedResult(out.Counters, at)
	}

	var vErr *ValidationError
	switch KindOf(err) {
	case KindValidation:
		errors.As(err, &vErr)
		return model.NewInvalidResult(vErr.Reason, at)
	case KindSubmission, KindRetrieval, KindTransport:
		return model.NewFailedResult(at)
	default:
		return model.NewErrorResult(err.Error(), at)
	}
}

// check runs one verification, terminal state included, under recover. A
// panic anywhere, the observer included, ends in an UnexpectedError.
func (v *Verifier) check(ctx context.Context, req model.CheckRequest, obs Observer) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("verification panicked", logging.Field{Key: "panic", Value: fmt.Sprint(r)})
			out = Outcome{}
			err = &UnexpectedError{Err: fmt.Errorf("%v", r)}
			obs.emitQuiet(StateErrored)
		}
	}()

	out, err = v.dispatch(ctx, req, obs)
	switch KindOf(err) {
	case KindNone:
		obs.emit(StateDone)
	case KindUnexpected:
		obs.emit(StateErrored)
	}
	return out, err
}

func (v *Verifier) dispatch(ctx context.Context, req model.CheckRequest, obs Observer) (Outcome, error) {
	obs.emit(StateIdle)

	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case req.HasHash():
		hash, verr := utils.NormalizeHash(req.Hash)
		if verr != nil {
			obs.emit(StateInvalid)
			return Outcome{}, &ValidationError{Field: "hash", Reason: "malformed hash: " + verr.Error()}
		}
		if v.client == nil {
			return Outcome{}, &UnexpectedError{Err: errors.New("scan client not configured")}
		}
		return v.checkHash(ctx, hash, obs)

	case req.HasURL():
		target, verr := v.prepareURL(req.URL)
		if verr != nil {
			obs.emit(StateInvalid)
			return Outcome{}, &ValidationError{Field: "url", Reason: "malformed URL: " + verr.Error()}
		}
		if v.client == nil {
			return Outcome{}, &UnexpectedError{Err: errors.New("scan client not configured")}
		}
		return v.checkURL(ctx, target, obs)

	default:
		obs.emit(StateInvalid)
		return Outcome{}, &ValidationError{}
	}
}

func (v *Verifier) prepareURL(raw string) (string, error) {
	var (
		target string
		err    error
	)
	if v.cfg.CanonicalizeURLs {
		target, err = utils.CanonicalizeURL(raw, utils.URLOptions{
			DefaultScheme:      "https",
			DropTrackingParams: v.cfg.DropTrackingParams,
		})
	} else {
		target = strings.TrimSpace(raw)
		_, err = utils.ParseTargetURL(target, "https")
	}
	if err != nil {
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = uErr.Err
		}
		return "", err
	}
	return target, nil
}

func (v *Verifier) checkHash(ctx context.Context, hash string, obs Observer) (Outcome, error) {
	logger := v.logger.With(logging.Field{Key: "hash", Value: hash})

	obs.emit(StateRetrieving)
	if err := ctx.Err(); err != nil {
		obs.emit(StateRetrieveFailed)
		return Outcome{}, canceled(scanclient.OpGetAnalysisHash, err)
	}

	counters, err := v.client.GetAnalysisByHash(ctx, hash)
	if err != nil {
		logger.Warn("hash lookup failed", logging.Field{Key: "error", Value: err})
		obs.failed(err, StateRetrieveFailed)
		return Outcome{}, err
	}

	obs.emit(StateClassified)
	return Outcome{
		Target:   "hash",
		Subject:  hash,
		Attempts: 1,
		Counters: counters,
		Level:    model.Classify(counters),
	}, nil
}

func (v *Verifier) checkURL(ctx context.Context, target string, obs Observer) (Outcome, error) {
	logger := v.logger.With(logging.Field{Key: "url", Value: target})

	obs.emit(StateSubmitting)
	if err := ctx.Err(); err != nil {
		obs.emit(StateSubmitFailed)
		return Outcome{}, canceled(scanclient.OpSubmitURL, err)
	}

	handle, err := v.client.SubmitURL(ctx, target)
	if err != nil {
		logger.Warn("url submission failed", logging.Field{Key: "error", Value: err})
		obs.failed(err, StateSubmitFailed)
		return Outcome{}, err
	}
	logger.Debug("url submitted", logging.Field{Key: "analysis_id", Value: handle.String()})

	counters, attempts, err := v.poll(ctx, handle, obs)
	if err != nil {
		logger.Warn("analysis retrieval failed",
			logging.Field{Key: "analysis_id", Value: handle.String()},
			logging.Field{Key: "attempts", Value: attempts},
			logging.Field{Key: "error", Value: err})
		obs.failed(err, StateRetrieveFailed)
		return Outcome{}, err
	}

	obs.emit(StateClassified)
	return Outcome{
		Target:   "url",
		Subject:  target,
		Handle:   handle,
		Attempts: attempts,
		Counters: counters,
		Level:    model.Classify(counters),
	}, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func targetKind(req model.CheckRequest) string {
	switch {
	case req.HasHash():
		return "hash"
	case req.HasURL():
		return "url"
	default:
		return "none"
	}
}

func canceled(op scanclient.Op, err error) error {
	return &scanclient.TransportError{Op: op, Kind: webclient.ClassifyError(err), Err: err}
}
