package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devhatch/devhatch/internal/store"
)

type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_history(
			id BIGSERIAL PRIMARY KEY,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			mode TEXT NOT NULL,
			url TEXT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			stopped_at TIMESTAMPTZ NULL,
			exit_err TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_key ON session_history(key);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_started ON session_history(started_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordStart(ctx context.Context, rec store.Record) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO session_history(key, name, pid, mode, url, started_at, stopped_at, exit_err)
		VALUES($1,$2,$3,$4,NULL,$5,NULL,NULL)
		RETURNING id;`,
		rec.Key, rec.Name, rec.PID, rec.Mode, rec.StartedAt.UTC()).Scan(&id)
	return id, err
}

func (p *DB) SetURL(ctx context.Context, id int64, url string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE session_history SET url=$1 WHERE id=$2;`, url, id)
	return err
}

func (p *DB) RecordStop(ctx context.Context, id int64, stoppedAt time.Time, exitErr error) error {
	var errStr sql.NullString
	if exitErr != nil {
		errStr = sql.NullString{String: exitErr.Error(), Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE session_history SET stopped_at=$1, exit_err=$2 WHERE id=$3;`,
		stoppedAt.UTC(), errStr, id)
	return err
}

func (p *DB) Recent(ctx context.Context, key string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, key, name, pid, mode, url, started_at, stopped_at, exit_err
			FROM session_history
			ORDER BY started_at DESC, id DESC
			LIMIT $1;`, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, key, name, pid, mode, url, started_at, stopped_at, exit_err
			FROM session_history
			WHERE key=$1
			ORDER BY started_at DESC, id DESC
			LIMIT $2;`, key, limit)
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
