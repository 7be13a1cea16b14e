// Package storage defines the job store contract and utilities shared
// across storage adapter implementations.
//
// Adapters (memory, postgres) persist supervisor-owned Job records. The
// workflow core depends only on this interface, so the in-memory map can
// be swapped for a durable store without touching the cycle logic.
package storage

import (
	"context"
	"errors"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
)

// Sentinel errors for job store operations.
var (
	// ErrNotFound is returned when a job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrConflict is returned when a job with the given ID already exists.
	ErrConflict = errors.New("job already exists")
)

// JobStore persists Job records keyed by job ID. Implementations must be
// safe for concurrent use; the supervisor inserts and updates jobs from
// many goroutines at once.
type JobStore interface {
	// CreateJob inserts a new job. Returns ErrConflict if the ID is taken.
	CreateJob(ctx context.Context, job *api.Job) error

	// GetJob retrieves a job by ID. Returns ErrNotFound if absent.
	GetJob(ctx context.Context, id string) (*api.Job, error)

	// UpdateJob replaces a stored job. Returns ErrNotFound if absent.
	UpdateJob(ctx context.Context, job *api.Job) error

	// FinishJob atomically moves a job to a terminal status, recording the
	// final workflow snapshot and error message. The transition happens
	// only while the stored status is still non-terminal; a job that has
	// already reached a terminal state is left untouched and ErrConflict
	// is returned. Returns ErrNotFound if the job does not exist.
	FinishJob(ctx context.Context, id string, status api.LifecycleStatus, result *api.WorkflowState, errMsg string) error

	// ListJobs returns up to limit job summaries, most recent first.
	ListJobs(ctx context.Context, limit int) ([]api.JobSummary, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases held resources.
	Close() error
}
