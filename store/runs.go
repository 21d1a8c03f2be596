package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run describes one ingestion: where the prices came from and how many
// records were committed.
type Run struct {
	ID         string    `json:"run_id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    int       `json:"records"`
}

// Duration is how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// insertRun writes the ingest_runs row for r inside tx.
func (d *DB) insertRun(ctx context.Context, tx *sql.Tx, r Run) error {
	p := d.dialect.placeholder
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO ingest_runs (run_id, source, started_at, finished_at, records)
		VALUES (%s, %s, %s, %s, %s)`, p(1), p(2), p(3), p(4), p(5)),
		r.ID, r.Source, d.dialect.bindTime(r.StartedAt), d.dialect.bindTime(r.FinishedAt), r.Records,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, source, started_at, finished_at, records FROM ingest_runs ORDER BY run_id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT " + d.dialect.placeholder(1)
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished any
		if err := rows.Scan(&r.ID, &r.Source, &started, &finished, &r.Records); err != nil {
			return nil, err
		}
		if r.StartedAt, err = scanTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = scanTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// GetRun returns a single run by ID.
func (d *DB) GetRun(ctx context.Context, id string) (Run, error) {
	var r Run
	var started, finished any
	err := d.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT run_id, source, started_at, finished_at, records FROM ingest_runs WHERE run_id = %s`,
		d.dialect.placeholder(1)), id,
	).Scan(&r.ID, &r.Source, &started, &finished, &r.Records)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", id, ErrRunNotFound)
		}
		return Run{}, err
	}
	if r.StartedAt, err = scanTime(started); err != nil {
		return Run{}, err
	}
	if r.FinishedAt, err = scanTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}
