// Package memory provides an in-memory storage.JobStore for testing and
// lightweight deployments. Jobs are stored in memory and lost when the
// process restarts. Optional eviction of the oldest jobs limits memory
// usage under sustained load.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/storage"
)

// entry holds a stored job and its position in the insertion order.
type entry struct {
	job  *api.Job
	elem *list.Element
}

// Store is an in-memory JobStore with optional oldest-first eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   *list.List // front = most recently created
	maxSize int        // 0 = unlimited
}

// Ensure Store implements storage.JobStore at compile time.
var _ storage.JobStore = (*Store)(nil)

// New creates an in-memory store. If maxSize is 0 the store grows without
// limit; otherwise the oldest job is evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// CreateJob inserts a new job, evicting the oldest if at capacity.
func (s *Store) CreateJob(_ context.Context, job *api.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	stored := cloneJob(job)
	elem := s.order.PushFront(job.ID)
	s.entries[job.ID] = &entry{job: stored, elem: elem}
	return nil
}

// GetJob retrieves a copy of the job so callers cannot mutate stored state.
func (s *Store) GetJob(_ context.Context, id string) (*api.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneJob(e.job), nil
}

// UpdateJob replaces a stored job in place. Creation order is preserved.
func (s *Store) UpdateJob(_ context.Context, job *api.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[job.ID]
	if !ok {
		return storage.ErrNotFound
	}
	e.job = cloneJob(job)
	return nil
}

// FinishJob records a terminal transition under the store lock, so a
// concurrent finish and cancel cannot overwrite each other: whichever
// terminal write lands first wins and the loser gets ErrConflict.
func (s *Store) FinishJob(_ context.Context, id string, status api.LifecycleStatus, result *api.WorkflowState, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}
	if api.IsTerminal(e.job.Status) {
		return storage.ErrConflict
	}

	e.job.Status = status
	e.job.Result = result
	e.job.Error = errMsg
	return nil
}

// ListJobs returns up to limit summaries, most recently created first.
func (s *Store) ListJobs(_ context.Context, limit int) ([]api.JobSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	summaries := make([]api.JobSummary, 0, limit)
	for el := s.order.Front(); el != nil && len(summaries) < limit; el = el.Next() {
		e := s.entries[el.Value.(string)]
		summaries = append(summaries, api.JobSummary{
			JobID:           e.job.ID,
			LifecycleStatus: e.job.Status,
			CreatedAt:       e.job.CreatedAt,
		})
	}
	return summaries, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently created entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.order.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.order.Remove(back)
	delete(s.entries, id)
}

// cloneJob copies a job so the store and its callers never share a
// mutable record. The WorkflowState snapshot is shared read-only; it is
// never mutated after the engine returns it.
func cloneJob(job *api.Job) *api.Job {
	c := *job
	return &c
}
