package store

import (
	"context"
	"database/sql"
	"time"
)

// Record is one dev-server run in the history table. Key is the project
// path. URL is the readiness URL if one was detected before the session
// ended. StoppedAt and ExitErr stay NULL while the session runs and for
// detached sessions whose exit we never observe.
type Record struct {
	ID        int64
	Key       string
	Name      string
	PID       int
	Mode      string
	URL       sql.NullString
	StartedAt time.Time
	StoppedAt sql.NullTime
	ExitErr   sql.NullString
}

// Store persists session history. Implementations live in the sqlite and
// postgres subpackages; pick one with factory.NewFromDSN.
type Store interface {
	EnsureSchema(ctx context.Context) error
	// RecordStart inserts a new run and returns its row id for later
	// SetURL/RecordStop calls.
	RecordStart(ctx context.Context, rec Record) (int64, error)
	SetURL(ctx context.Context, id int64, url string) error
	RecordStop(ctx context.Context, id int64, stoppedAt time.Time, exitErr error) error
	// Recent lists runs newest-first. Empty key means all projects.
	Recent(ctx context.Context, key string, limit int) ([]Record, error)
	Close() error
}
