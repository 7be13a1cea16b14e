// Package supervisor owns job identity and lifecycle. It validates
// submissions, runs the workflow engine asynchronously per job, and exposes
// status, result, cancel, and list operations over the job store.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/debug"
	"github.com/Renuka-M1115/multi-agent/pkg/observability"
	"github.com/Renuka-M1115/multi-agent/pkg/storage"
)

// ErrNotCompleted is returned by GetResult for jobs that have not reached
// the completed lifecycle state.
var ErrNotCompleted = errors.New("job not completed")

// Runner drives one workflow to termination. The returned error is non-nil
// only when the run was cancelled through the context.
type Runner interface {
	Run(ctx context.Context, state *api.WorkflowState) (*api.WorkflowState, error)
}

// Supervisor tracks jobs and runs one workflow goroutine per submission.
// Jobs share no mutable state with each other; the store is the only
// shared structure.
type Supervisor struct {
	store  storage.JobStore
	runner Runner

	// probeClient checks dataset reachability on submission. Nil uses a
	// default probe-scoped client.
	probeClient *http.Client

	// defaultMaxIterations is applied to submissions that omit the
	// iteration budget.
	defaultMaxIterations int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	wg sync.WaitGroup
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithDefaultMaxIterations sets the iteration budget used when a
// submission omits max_iterations. Non-positive values are ignored.
func WithDefaultMaxIterations(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.defaultMaxIterations = n
		}
	}
}

// New creates a Supervisor over the given store and workflow runner.
func New(store storage.JobStore, runner Runner, opts ...Option) *Supervisor {
	s := &Supervisor{
		store:                store,
		runner:               runner,
		defaultMaxIterations: api.DefaultMaxIterations,
		cancels:              make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetProbeClient overrides the HTTP client used for dataset reachability
// probes. Intended for tests.
func (s *Supervisor) SetProbeClient(c *http.Client) {
	s.probeClient = c
}

// Submit validates a request, stores a queued job, and schedules the
// workflow without blocking the caller. Validation failures are returned
// before any job record exists.
func (s *Supervisor) Submit(ctx context.Context, req *api.CreateJobRequest) (*api.CreateJobResponse, error) {
	if apiErr := api.ValidateCreateJob(req); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := api.VerifyDatasetReference(ctx, req.DatasetReference, s.probeClient); apiErr != nil {
		return nil, apiErr
	}

	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = s.defaultMaxIterations
	}
	state := api.NewWorkflowState(req.UserRequest, req.DatasetReference, maxIterations)

	// The job record carries an initial snapshot of the submitted
	// parameters so status queries report the real budget while the run
	// is still in flight. The engine mutates its own copy; the snapshot
	// is replaced wholesale by the final state at finish.
	initial := *state
	job := &api.Job{
		ID:        api.NewJobID(),
		Status:    api.LifecycleQueued,
		CreatedAt: time.Now().UTC(),
		Result:    &initial,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("storing job: %s", err.Error()))
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runJob(jobCtx, job.ID, state)

	slog.Info("job submitted", "job_id", job.ID, "max_iterations", state.MaxIterations)

	return &api.CreateJobResponse{
		JobID:           job.ID,
		LifecycleStatus: api.LifecycleQueued,
		Message:         "Visualization generation started",
	}, nil
}

// runJob is the asynchronous job boundary. Any panic or error inside the
// workflow is converted into a failed job here; nothing escapes to corrupt
// the store.
func (s *Supervisor) runJob(ctx context.Context, jobID string, state *api.WorkflowState) {
	defer s.wg.Done()
	defer s.dropCancel(jobID)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("workflow panicked", "job_id", jobID, "panic", r)
			s.finishJob(jobID, api.LifecycleFailed, state, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// The job may have been cancelled between submission and pickup.
	if !s.markProcessing(jobID) {
		return
	}

	observability.JobsActive.Inc()
	defer observability.JobsActive.Dec()

	start := time.Now()
	final, err := s.runner.Run(ctx, state)
	duration := time.Since(start)

	debug.Log("supervisor", "workflow returned",
		"job_id", jobID,
		"status", final.Status,
		"iterations", final.Iteration,
		"duration_ms", duration.Milliseconds(),
	)

	switch {
	case err != nil:
		// Cooperative cancellation observed between iterations.
		s.finishJob(jobID, api.LifecycleCancelled, final, "")
	case final.Status == api.WorkflowStatusFailed:
		s.finishJob(jobID, api.LifecycleFailed, final, final.ErrorMessage)
	default:
		s.finishJob(jobID, api.LifecycleCompleted, final, "")
	}

	observability.JobIterations.Observe(float64(final.Iteration))
}

// markProcessing transitions a queued job to processing. It reports false
// when the job is no longer eligible to run (already cancelled).
func (s *Supervisor) markProcessing(jobID string) bool {
	ctx := context.Background()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		slog.Error("loading job for processing", "job_id", jobID, "error", err.Error())
		return false
	}
	if api.ValidateLifecycleTransition(job.Status, api.LifecycleProcessing) != nil {
		return false
	}

	job.Status = api.LifecycleProcessing
	if err := s.store.UpdateJob(ctx, job); err != nil {
		slog.Error("marking job processing", "job_id", jobID, "error", err.Error())
		return false
	}
	return true
}

// finishJob records a terminal lifecycle state with the final workflow
// snapshot. The store makes the transition atomic: a job that reached a
// terminal state first (cancelled from the outside) is left untouched.
func (s *Supervisor) finishJob(jobID string, status api.LifecycleStatus, state *api.WorkflowState, errMsg string) {
	err := s.store.FinishJob(context.Background(), jobID, status, state, errMsg)
	switch {
	case errors.Is(err, storage.ErrConflict):
		// Lost the race to an external cancellation; its state stands.
		debug.Log("supervisor", "finish skipped, job already terminal", "job_id", jobID)
		return
	case err != nil:
		slog.Error("storing final job state", "job_id", jobID, "error", err.Error())
		return
	}

	observability.JobsTotal.WithLabelValues(string(status)).Inc()
	slog.Info("job finished", "job_id", jobID, "lifecycle_status", status, "iterations", state.Iteration)
}

// GetStatus returns the status projection of a job.
func (s *Supervisor) GetStatus(ctx context.Context, jobID string) (*api.JobStatus, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return api.StatusOf(job), nil
}

// GetResult returns the full workflow snapshot of a completed job.
// Non-completed jobs yield ErrNotCompleted.
func (s *Supervisor) GetResult(ctx context.Context, jobID string) (*api.WorkflowState, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != api.LifecycleCompleted {
		return nil, ErrNotCompleted
	}
	return job.Result, nil
}

// Cancel moves a non-terminal job to cancelled and signals its workflow
// context. The signal is cooperative: an in-flight model call or sandbox
// run finishes before the loop observes it.
func (s *Supervisor) Cancel(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if apiErr := api.ValidateLifecycleTransition(job.Status, api.LifecycleCancelled); apiErr != nil {
		return apiErr
	}

	err = s.store.FinishJob(ctx, jobID, api.LifecycleCancelled, job.Result, job.Error)
	switch {
	case errors.Is(err, storage.ErrConflict):
		// The workflow finished between the validation read and the
		// write; its terminal state stands.
		return api.NewConflictError("job already reached a terminal state")
	case err != nil:
		return api.NewServerError(fmt.Sprintf("storing cancellation: %s", err.Error()))
	}

	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	observability.JobsTotal.WithLabelValues(string(api.LifecycleCancelled)).Inc()
	slog.Info("job cancelled", "job_id", jobID)
	return nil
}

// List returns up to limit job summaries, most recent first.
func (s *Supervisor) List(ctx context.Context, limit int) (*api.JobList, error) {
	summaries, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &api.JobList{Total: len(summaries), Jobs: summaries}, nil
}

// HealthCheck reports whether the backing store is reachable.
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}

// Shutdown waits for in-flight job goroutines to finish or the context to
// expire. Workflows are not interrupted; callers wanting a fast stop should
// cancel jobs first.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) dropCancel(jobID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
		delete(s.cancels, jobID)
	}
	s.mu.Unlock()
}
