// Package metrics exposes Prometheus collectors for verifications, remote
// errors and background jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raysh454/threatcheck/internal/model"
)

const namespace = "threatcheck"

// Recorder owns a set of collectors registered on one registry. The zero
// value is not usable; a nil *Recorder is a valid no-op.
type Recorder struct {
	registry *prometheus.Registry

	verifications *prometheus.CounterVec
	threatLevels  *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	scanErrors    *prometheus.CounterVec
	pollAttempts  prometheus.Counter
	jobsActive    prometheus.Gauge
	jobsTotal     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry together with the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg only.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		verifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "Completed verifications by target type and outcome",
			},
			[]string{"target", "outcome"},
		),
		threatLevels: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "threat_levels_total",
				Help:      "Classified verdicts by threat level",
			},
			[]string{"level"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_duration_seconds",
				Help:      "End-to-end verification latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"target"},
		),
		scanErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_errors_total",
				Help:      "Verification errors by kind",
			},
			[]string{"kind"},
		),
		pollAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Analysis retrievals issued after a URL submission",
		}),
		jobsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Background verification jobs currently running",
		}),
		jobsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Finished background jobs by final status",
			},
			[]string{"status"},
		),
	}
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveResult records one finished verification.
func (r *Recorder) ObserveResult(target string, res model.CheckResult, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.verifications.WithLabelValues(target, res.Outcome()).Inc()
	r.duration.WithLabelValues(target).Observe(elapsed.Seconds())
	if res.Level != nil {
		r.threatLevels.WithLabelValues(res.Level.String()).Inc()
	}
}

// ObserveError counts an error by its taxonomy kind (transport errors use the
// transport kind).
func (r *Recorder) ObserveError(kind string) {
	if r == nil {
		return
	}
	r.scanErrors.WithLabelValues(kind).Inc()
}

// ObservePollAttempt counts one retrieval after a submission.
func (r *Recorder) ObservePollAttempt() {
	if r == nil {
		return
	}
	r.pollAttempts.Inc()
}

// JobStarted marks a background job as running.
func (r *Recorder) JobStarted() {
	if r == nil {
		return
	}
	r.jobsActive.Inc()
}

// JobFinished marks a running job as finished with status.
func (r *Recorder) JobFinished(status string) {
	if r == nil {
		return
	}
	r.jobsActive.Dec()
	r.jobsTotal.WithLabelValues(status).Inc()
}
