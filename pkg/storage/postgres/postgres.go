// Package postgres provides a PostgreSQL implementation of storage.JobStore.
// It uses pgx/v5 for connection pooling and JSONB for the WorkflowState
// snapshot, so jobs survive process restarts.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/storage"
)

// Store is a PostgreSQL-backed JobStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.JobStore at compile time.
var _ storage.JobStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateJob inserts a new job record.
func (s *Store) CreateJob(ctx context.Context, job *api.Job) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (id, lifecycle_status, created_at, result, error)
		VALUES ($1, $2, $3, $4, $5)
	`,
		job.ID, string(job.Status), job.CreatedAt, nullJSON(resultJSON), nullString(job.Error),
	)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*api.Job, error) {
	var job api.Job
	var status string
	var resultJSON *[]byte
	var errMsg *string

	err := s.pool.QueryRow(ctx, `
		SELECT id, lifecycle_status, created_at, result, error
		FROM jobs
		WHERE id = $1
	`, id).Scan(&job.ID, &status, &job.CreatedAt, &resultJSON, &errMsg)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying job: %w", err)
	}

	job.Status = api.LifecycleStatus(status)
	if errMsg != nil {
		job.Error = *errMsg
	}
	if resultJSON != nil {
		var state api.WorkflowState
		if err := json.Unmarshal(*resultJSON, &state); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
		job.Result = &state
	}

	return &job, nil
}

// UpdateJob replaces a stored job's mutable fields.
func (s *Store) UpdateJob(ctx context.Context, job *api.Job) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET lifecycle_status = $2, result = $3, error = $4
		WHERE id = $1
	`,
		job.ID, string(job.Status), nullJSON(resultJSON), nullString(job.Error),
	)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FinishJob records a terminal transition with a single conditional
// UPDATE, so a concurrent finish and cancel cannot overwrite each other:
// the row only changes while its status is still non-terminal.
func (s *Store) FinishJob(ctx context.Context, id string, status api.LifecycleStatus, result *api.WorkflowState, errMsg string) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET lifecycle_status = $2, result = $3, error = $4
		WHERE id = $1
		  AND lifecycle_status NOT IN ('completed', 'failed', 'cancelled')
	`,
		id, string(status), nullJSON(resultJSON), nullString(errMsg),
	)
	if err != nil {
		return fmt.Errorf("finishing job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the job is gone or it already reached a terminal state.
		var existing string
		err := s.pool.QueryRow(ctx, `SELECT lifecycle_status FROM jobs WHERE id = $1`, id).Scan(&existing)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking job status: %w", err)
		}
		return storage.ErrConflict
	}
	return nil
}

// ListJobs returns up to limit summaries, most recently created first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]api.JobSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, lifecycle_status, created_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	summaries := make([]api.JobSummary, 0, limit)
	for rows.Next() {
		var sum api.JobSummary
		var status string
		if err := rows.Scan(&sum.JobID, &status, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		sum.LifecycleStatus = api.LifecycleStatus(status)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}
	return summaries, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func marshalResult(state *api.WorkflowState) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return data, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
