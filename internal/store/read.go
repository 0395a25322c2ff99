package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// MaxSeq returns the highest recorded sequence number, or 0 for an empty
// journal. The scheduler clock resumes from it.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM executions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// ReadRun returns a single run.
func (s *Store) ReadRun(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operation, machine, test_run, started_at, finished_at, outcome, error
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %d: %w", id, err)
	}
	return r, nil
}

// ReadRuns returns the most recent runs, newest first.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, operation, machine, test_run, started_at, finished_at, outcome, error
		FROM runs
		ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEntries returns executions joined with their run, newest first.
func (s *Store) ReadEntries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.PieceID != "" {
		where = append(where, "e.piece_id = ?")
		args = append(args, strings.ToLower(f.PieceID))
	}

	query := `
		SELECT e.seq, e.run_id, e.piece_id, e.kind, e.action, e.piece_hash, e.outcome, e.error,
		       r.operation, r.test_run, r.started_at
		FROM executions e
		JOIN runs r ON r.id = e.run_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY e.seq DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e         Entry
			testRun   int
			startedAt string
		)
		if err := rows.Scan(
			&e.Seq, &e.RunID, &e.PieceID, &e.Kind, &e.Action, &e.PieceHash, &e.Outcome, &e.Error,
			&e.Operation, &testRun, &startedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.TestRun = testRun != 0
		if e.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r          Run
		testRun    int
		startedAt  string
		finishedAt sql.NullString
		outcome    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Operation, &r.Machine, &testRun, &startedAt, &finishedAt, &outcome, &r.Error); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.TestRun = testRun != 0
	r.Outcome = outcome.String

	var err error
	if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}
