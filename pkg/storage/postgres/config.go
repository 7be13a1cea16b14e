package postgres

import "time"

// Config holds connection pool and migration settings for the job store.
type Config struct {
	// DSN is the PostgreSQL connection string, e.g.
	// "postgres://vizagent:secret@db:5432/vizagent?sslmode=require".
	DSN string

	// MaxConns caps the pool size. Each workflow iteration issues only a
	// handful of short statements, so the cap mainly absorbs bursts of
	// status polling against in-flight jobs (default: 25).
	MaxConns int32

	// MinConns keeps idle connections warm so the supervisor's finish and
	// cancel writes never wait on a fresh dial (default: 5).
	MinConns int32

	// MaxConnLifetime bounds connection age so pooled connections rotate
	// through load balancers and credential changes (default: 5 minutes).
	MaxConnLifetime time.Duration

	// MigrateOnStart applies the embedded schema migrations before the
	// store serves its first query.
	MigrateOnStart bool
}

// defaults fills pool settings left at their zero value.
func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MinConns == 0 {
		c.MinConns = 5
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 5 * time.Minute
	}
}
