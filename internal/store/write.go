package store

import (
	"context"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// BeginRun opens a run and returns its id.
func (s *Store) BeginRun(ctx context.Context, operation, machine string, testRun bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (operation, machine, test_run, started_at)
		VALUES (?, ?, ?, ?)
	`,
		operation,
		machine,
		boolToInt(testRun),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run with its outcome. runErr is nil on success.
func (s *Store) FinishRun(ctx context.Context, runID int64, runErr error) error {
	outcome, msg := OutcomeSuccess, ""
	if runErr != nil {
		outcome, msg = OutcomeFailure, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, outcome = ?, error = ?
		WHERE id = ? AND finished_at IS NULL
	`,
		s.now().UTC().Format(timeLayout),
		outcome,
		msg,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %d: no open run with this id", runID)
	}
	return nil
}

// WriteExecution appends one execution to an open run.
// The sequence number is the primary key; writing it twice is an error.
func (s *Store) WriteExecution(ctx context.Context, e Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(seq, run_id, piece_id, kind, action, piece_hash, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.RunID,
		e.PieceID,
		e.Kind,
		e.Action,
		e.PieceHash,
		e.Outcome,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("write execution %d: %w", e.Seq, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
