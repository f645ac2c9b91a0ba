package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/scanclient"
	"github.com/raysh454/threatcheck/internal/testutil"
	"github.com/raysh454/threatcheck/internal/verifier"
)

// newTestOrchestrator wires an Orchestrator to a verifier backed by client.
func newTestOrchestrator(t *testing.T, client *testutil.DummyScanClient, vcfg verifier.Config) *Orchestrator {
	t.Helper()

	logger := &testutil.DummyLogger{}
	cfg := DefaultConfig()
	cfg.Jobs.Retention = 0

	v := verifier.New(client, vcfg, logger)
	orch := NewOrchestrator(cfg, v, nil, logger)
	t.Cleanup(orch.Close)
	return orch
}

func fastVerifierConfig() verifier.Config {
	cfg := verifier.DefaultConfig()
	cfg.PollDelay = 0
	return cfg
}

func drain(job Job) []JobEvent {
	var evs []JobEvent
	for ev := range job.Events {
		evs = append(evs, ev)
	}
	return evs
}

type jobCounter struct {
	started  int
	finished []string
}

func (c *jobCounter) JobStarted()               { c.started++ }
func (c *jobCounter) JobFinished(status string) { c.finished = append(c.finished, status) }

// ─── Construction ──────────────────────────────────────────────────────

func TestNewOrchestrator_DefaultConfig(t *testing.T) {
	t.Parallel()
	o := NewOrchestrator(nil, nil, nil, nil)
	defer o.Close()
	if o.cfg == nil {
		t.Fatal("expected default config when nil passed")
	}
}

// ─── Job management ────────────────────────────────────────────────────

func TestGetJob_UnknownReturnsErrJobNotFound(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())

	if _, err := o.GetJob("nonexistent"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListJobs_EmptyInitially(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())

	if jobs := o.ListJobs(); len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}
}

func TestCancelJob_NoOpForUnknown(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())
	// Should not panic
	o.CancelJob("does-not-exist")
}

// ─── Verify job lifecycle ──────────────────────────────────────────────

func TestStartVerifyJob_CompletesWithResult(t *testing.T) {
	t.Parallel()
	client := &testutil.DummyScanClient{}
	o := newTestOrchestrator(t, client, fastVerifierConfig())

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}
	if job.ID == "" || job.Type != "verify" || job.Status != JobPending {
		t.Fatalf("unexpected initial job: %+v", job)
	}

	evs := drain(job)
	if len(evs) == 0 {
		t.Fatal("expected events")
	}
	if evs[0].Type != JobEventStatus || evs[0].Status != JobPending {
		t.Errorf("first event = %+v", evs[0])
	}
	last := evs[len(evs)-1]
	if last.Type != JobEventStatus || last.Status != JobDone {
		t.Errorf("last event = %+v", last)
	}

	var states []verifier.State
	var result *model.CheckResult
	for _, ev := range evs {
		switch ev.Type {
		case JobEventState:
			states = append(states, ev.State)
		case JobEventResult:
			result = ev.Result
		}
	}
	if len(states) == 0 || states[len(states)-1] != verifier.StateDone {
		t.Errorf("states = %v", states)
	}
	if result == nil || !result.IsSafe {
		t.Errorf("result event = %+v", result)
	}

	final, err := o.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if final.Status != JobDone || final.State != verifier.StateDone {
		t.Errorf("final = %+v", final)
	}
	if final.Result == nil || !final.Result.Classified() {
		t.Errorf("final result = %+v", final.Result)
	}
	if final.EndedAt.IsZero() {
		t.Error("expected EndedAt to be set")
	}
}

func TestStartVerifyJob_SubmissionFailureMarksFailed(t *testing.T) {
	t.Parallel()
	client := &testutil.DummyScanClient{
		SubmitFunc: func(context.Context, string) (model.AnalysisHandle, error) {
			return "", &scanclient.SubmissionError{StatusCode: 503}
		},
	}
	o := newTestOrchestrator(t, client, fastVerifierConfig())

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}
	drain(job)

	final, _ := o.GetJob(job.ID)
	if final.Status != JobFailed {
		t.Errorf("expected failed, got %q", final.Status)
	}
	if final.Error != model.ThreatAPIUnavailable {
		t.Errorf("error = %q", final.Error)
	}
	if final.State != verifier.StateSubmitFailed {
		t.Errorf("state = %q", final.State)
	}
	if final.Result == nil || final.Result.IsSafe {
		t.Errorf("result = %+v", final.Result)
	}
}

func TestStartVerifyJob_InvalidRequestMarksFailed(t *testing.T) {
	t.Parallel()
	client := &testutil.DummyScanClient{}
	o := newTestOrchestrator(t, client, fastVerifierConfig())

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}
	drain(job)

	final, _ := o.GetJob(job.ID)
	if final.Status != JobFailed || final.Error != model.ThreatInvalidRequest {
		t.Errorf("final = %+v", final)
	}
	if s, p, h := client.Calls(); s+p+h != 0 {
		t.Errorf("expected no scanner calls, got %d/%d/%d", s, p, h)
	}
}

func TestStartVerifyJob_CancelJobTransitionsToCanceled(t *testing.T) {
	t.Parallel()
	vcfg := fastVerifierConfig()
	vcfg.PollDelay = time.Hour
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, vcfg)

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}
	o.CancelJob(job.ID)
	drain(job)

	final, _ := o.GetJob(job.ID)
	if final.Status != JobCanceled {
		t.Errorf("expected canceled, got %q", final.Status)
	}
	if final.Result == nil || final.Result.IsSafe || final.Result.ScanEngine != model.EngineFailed {
		t.Errorf("canceled job result = %+v", final.Result)
	}
}

func TestStartVerifyJob_AppearsInListJobs(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())

	first, _ := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://a.example"})
	second, _ := o.StartVerifyJob(context.Background(), model.CheckRequest{Hash: "44d88612fea8a8f36de82e1278abb02f"})
	drain(first)
	drain(second)

	jobs := o.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	seen := map[string]bool{}
	for _, j := range jobs {
		seen[j.ID] = true
	}
	if !seen[first.ID] || !seen[second.ID] {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestStartVerifyJob_ReportsJobMetrics(t *testing.T) {
	t.Parallel()
	counter := &jobCounter{}
	v := verifier.New(&testutil.DummyScanClient{}, fastVerifierConfig(), &testutil.DummyLogger{})
	cfg := DefaultConfig()
	cfg.Jobs.Retention = 0
	o := NewOrchestrator(cfg, v, counter, &testutil.DummyLogger{})
	defer o.Close()

	job, _ := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	drain(job)
	o.Close()

	if counter.started != 1 || len(counter.finished) != 1 || counter.finished[0] != string(JobDone) {
		t.Errorf("metrics = %+v", counter)
	}
}

func TestStartVerifyJob_NilVerifierIsErrorResult(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Jobs.Retention = 0
	o := NewOrchestrator(cfg, nil, nil, nil)
	defer o.Close()

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}
	drain(job)
	final, _ := o.GetJob(job.ID)
	if final.Status != JobFailed || final.Result == nil || final.Result.ScanEngine != model.EngineError {
		t.Errorf("final = %+v", final)
	}
}

// ─── Retention ─────────────────────────────────────────────────────────

func TestPruneJobs_RemovesOnlyFinishedExpired(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())

	now := time.Now().UTC()
	o.jobsMu.Lock()
	o.jobs["old"] = &Job{ID: "old", Status: JobDone, EndedAt: now.Add(-time.Hour)}
	o.jobs["fresh"] = &Job{ID: "fresh", Status: JobFailed, EndedAt: now}
	o.jobs["running"] = &Job{ID: "running", Status: JobRunning}
	o.jobsMu.Unlock()

	if n := o.pruneJobs(now.Add(-time.Minute)); n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if _, err := o.GetJob("old"); !errors.Is(err, ErrJobNotFound) {
		t.Error("expected old job to be pruned")
	}
	for _, id := range []string{"fresh", "running"} {
		if _, err := o.GetJob(id); err != nil {
			t.Errorf("job %s: %v", id, err)
		}
	}
}

// ─── Close ─────────────────────────────────────────────────────────────

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())
	// Should not panic when called multiple times
	o.Close()
	o.Close()
}

func TestStartVerifyJob_RejectsWhenClosed(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, fastVerifierConfig())
	o.Close()

	_, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if !errors.Is(err, ErrOrchestratorClosed) {
		t.Fatalf("expected ErrOrchestratorClosed, got %v", err)
	}
}

func TestClose_CancelsRunningJobs(t *testing.T) {
	t.Parallel()
	vcfg := fastVerifierConfig()
	vcfg.PollDelay = time.Hour
	o := newTestOrchestrator(t, &testutil.DummyScanClient{}, vcfg)

	job, err := o.StartVerifyJob(context.Background(), model.CheckRequest{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("StartVerifyJob: %v", err)
	}

	// Close waits for the job goroutine.
	o.Close()
	drain(job)

	final, _ := o.GetJob(job.ID)
	if final.Status != JobCanceled {
		t.Errorf("expected canceled, got %q", final.Status)
	}
}
