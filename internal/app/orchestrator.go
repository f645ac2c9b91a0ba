package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/verifier"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrOrchestratorClosed = errors.New("orchestrator closed")
)

type JobEventType string

const (
	JobEventStatus JobEventType = "status"
	JobEventState  JobEventType = "state"
	JobEventResult JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For verification state transitions
	State verifier.State `json:"state,omitempty"`

	Result *model.CheckResult `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

// Job is one asynchronous verification. A job that ends with a fail-closed
// result (invalid, failed or errored) is marked failed; the result is kept.
type Job struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Request   model.CheckRequest `json:"request"`
	Status    JobStatus          `json:"status"`
	State     verifier.State     `json:"state"`
	Error     string             `json:"error,omitempty"`
	Result    *model.CheckResult `json:"result,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitzero"`
	Events    chan JobEvent      `json:"-"`
}

// JobMetrics receives job lifecycle counts.
type JobMetrics interface {
	JobStarted()
	JobFinished(status string)
}

type Orchestrator struct {
	cfg      *Config
	verifier *verifier.Verifier
	metrics  JobMetrics
	logger   logging.Logger
	now      func() time.Time

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	closed     bool

	wg        sync.WaitGroup
	stopJanit chan struct{}
	closeOnce sync.Once
}

// NewOrchestrator runs verification jobs on v. Finished jobs are pruned after
// cfg.Jobs.Retention. metrics may be nil.
func NewOrchestrator(cfg *Config, v *verifier.Verifier, metrics JobMetrics, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		cfg:        cfg,
		verifier:   v,
		metrics:    metrics,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		now:        func() time.Time { return time.Now().UTC() },
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
		stopJanit:  make(chan struct{}),
	}
	if cfg.Jobs.Retention > 0 {
		go o.janitor(cfg.Jobs.Retention)
	}
	return o
}

func (o *Orchestrator) eventBuffer() int {
	if o.cfg.Jobs.EventBuffer > 0 {
		return o.cfg.Jobs.EventBuffer
	}
	return 16
}

func (o *Orchestrator) newJob(req model.CheckRequest) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Type:      "verify",
		Request:   req,
		Status:    JobPending,
		State:     verifier.StateIdle,
		StartedAt: o.now(),
		Events:    make(chan JobEvent, o.eventBuffer()),
	}
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) update(jobID string, fn func(j *Job)) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		fn(j)
	}
}

// StartVerifyJob registers a job for req and verifies it in the background.
// The returned Job is a snapshot; its Events channel is closed once the job
// reaches a terminal status. Cancelling ctx cancels the job.
func (o *Orchestrator) StartVerifyJob(ctx context.Context, req model.CheckRequest) (Job, error) {
	job := o.newJob(req)
	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		cancel()
		return Job{}, ErrOrchestratorClosed
	}
	o.jobs[job.ID] = job
	o.jobCancels[job.ID] = cancel
	snapshot := *job
	o.wg.Add(1)
	o.jobsMu.Unlock()

	o.emitJobEvent(job.ID, JobEvent{JobID: job.ID, Type: JobEventStatus, Status: JobPending})
	o.logger.Info("verify job started",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "target", Value: req.Target()})

	go o.run(jobCtx, job.ID, req)
	return snapshot, nil
}

func (o *Orchestrator) run(ctx context.Context, jobID string, req model.CheckRequest) {
	defer o.wg.Done()

	var status JobStatus
	defer func() {
		o.jobsMu.Lock()
		if cancel, ok := o.jobCancels[jobID]; ok {
			cancel()
			delete(o.jobCancels, jobID)
		}
		j := o.jobs[jobID]
		if j != nil {
			j.EndedAt = o.now()
		}
		o.jobsMu.Unlock()

		if o.metrics != nil {
			o.metrics.JobFinished(string(status))
		}
		// Close events channel so websocket loop can terminate cleanly
		if j != nil && j.Events != nil {
			close(j.Events)
		}
	}()

	o.update(jobID, func(j *Job) { j.Status = JobRunning })
	if o.metrics != nil {
		o.metrics.JobStarted()
	}
	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

	observe := func(s verifier.State) {
		o.update(jobID, func(j *Job) { j.State = s })
		o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventState, State: s})
	}

	var res model.CheckResult
	if o.verifier == nil {
		res = model.NewErrorResult("verifier not configured", o.now())
	} else {
		res = o.verifier.VerifyObserved(ctx, req, observe)
	}

	var errMsg string
	switch {
	case !res.Classified() && ctx.Err() != nil:
		status = JobCanceled
		errMsg = ctx.Err().Error()
	case !res.Classified():
		status = JobFailed
		if len(res.Threats) > 0 {
			errMsg = res.Threats[0]
		}
	default:
		status = JobDone
	}

	o.update(jobID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.Result = &res
	})
	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventResult, Result: &res})
	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: status, Error: errMsg})

	o.logger.Info("verify job finished",
		logging.Field{Key: "job_id", Value: jobID},
		logging.Field{Key: "status", Value: string(status)},
		logging.Field{Key: "outcome", Value: res.Outcome()})
}

// CancelJob cancels a running job. Unknown or finished jobs are ignored.
func (o *Orchestrator) CancelJob(jobID string) {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetJob returns a snapshot of the job.
func (o *Orchestrator) GetJob(jobID string) (Job, error) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *j, nil
}

// ListJobs returns snapshots of all retained jobs, oldest first.
func (o *Orchestrator) ListJobs() []Job {
	o.jobsMu.Lock()
	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, *j)
	}
	o.jobsMu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}

// pruneJobs drops finished jobs that ended before cutoff and returns how many
// were removed.
func (o *Orchestrator) pruneJobs(cutoff time.Time) int {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	n := 0
	for id, j := range o.jobs {
		if j.Status.Terminal() && !j.EndedAt.IsZero() && j.EndedAt.Before(cutoff) {
			delete(o.jobs, id)
			n++
		}
	}
	return n
}

func (o *Orchestrator) janitor(retention time.Duration) {
	interval := retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-o.stopJanit:
			return
		case <-ticker.C:
			if n := o.pruneJobs(o.now().Add(-retention)); n > 0 {
				o.logger.Debug("pruned jobs", logging.Field{Key: "count", Value: n})
			}
		}
	}
}

// Close cancels running jobs, waits for them to finish and rejects new ones.
// It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.jobsMu.Lock()
		o.closed = true
		for _, cancel := range o.jobCancels {
			cancel()
		}
		o.jobsMu.Unlock()
		close(o.stopJanit)
		o.wg.Wait()
	})
}
