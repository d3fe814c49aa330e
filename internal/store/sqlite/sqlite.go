// Package sqlite implements session history on modernc.org/sqlite, which
// keeps the binary CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devhatch/devhatch/internal/store"
)

type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path. Use ":memory:" for in-memory.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_history(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			mode TEXT NOT NULL,
			url TEXT NULL,
			started_at TIMESTAMP NOT NULL,
			stopped_at TIMESTAMP NULL,
			exit_err TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_key ON session_history(key);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_started ON session_history(started_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) RecordStart(ctx context.Context, rec store.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history(key, name, pid, mode, url, started_at, stopped_at, exit_err)
		VALUES(?, ?, ?, ?, NULL, ?, NULL, NULL);`,
		rec.Key, rec.Name, rec.PID, rec.Mode, rec.StartedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *DB) SetURL(ctx context.Context, id int64, url string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE session_history SET url=? WHERE id=?;`, url, id)
	return err
}

func (s *DB) RecordStop(ctx context.Context, id int64, stoppedAt time.Time, exitErr error) error {
	var errStr sql.NullString
	if exitErr != nil {
		errStr = sql.NullString{String: exitErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE session_history SET stopped_at=?, exit_err=? WHERE id=?;`,
		stoppedAt.UTC(), errStr, id)
	return err
}

func (s *DB) Recent(ctx context.Context, key string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, key, name, pid, mode, url, started_at, stopped_at, exit_err
			FROM session_history
			ORDER BY started_at DESC, id DESC
			LIMIT ?;`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, key, name, pid, mode, url, started_at, stopped_at, exit_err
			FROM session_history
			WHERE key=?
			ORDER BY started_at DESC, id DESC
			LIMIT ?;`, key, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for rows.Next() {
		var r store.Record
		if err := rows.Scan(&r.ID, &r.Key, &r.Name, &r.PID, &r.Mode, &r.URL, &r.StartedAt, &r.StoppedAt, &r.ExitErr); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
