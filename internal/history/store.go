package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"faceswap/internal/domain"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one recorded batch run.
type Run struct {
	ID         string
	TaskList   string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// Store persists batch runs and their per-job outcomes, so a failed job
// can be reproduced and fixed without re-running the whole batch.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  task_list TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  finished_at INTEGER NOT NULL,
  total INTEGER NOT NULL,
  succeeded INTEGER NOT NULL,
  failed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes (
  run_id TEXT NOT NULL,
  idx INTEGER NOT NULL,
  face_image TEXT NOT NULL,
  target_image TEXT NOT NULL,
  output TEXT NOT NULL,
  success INTEGER NOT NULL,
  stage TEXT,
  reason TEXT,
  PRIMARY KEY (run_id, idx)
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordRun stores a run header and its ordered outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, outcomes []domain.JobOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, task_list, started_at, finished_at, total, succeeded, failed)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.TaskList,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Total,
		run.Succeeded,
		run.Failed,
	); err != nil {
		return err
	}

	for idx, outcome := range outcomes {
		success := 0
		if outcome.Success {
			success = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outcomes (run_id, idx, face_image, target_image, output, success, stage, reason)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			idx,
			outcome.Job.FaceImage,
			outcome.Job.TargetImage,
			outcome.Job.Output,
			success,
			string(outcome.Stage),
			outcome.Reason,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRun returns one run and its outcomes in original job order.
func (s *Store) GetRun(ctx context.Context, id string) (Run, []domain.JobOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_list, started_at, finished_at, total, succeeded, failed
       FROM runs WHERE id = ?`, id,
	)

	var (
		run                  Run
		startedMs, finishedMs int64
	)
	if err := row.Scan(&run.ID, &run.TaskList, &startedMs, &finishedMs, &run.Total, &run.Succeeded, &run.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, nil, ErrNotFound
		}
		return Run{}, nil, err
	}
	run.StartedAt = time.UnixMilli(startedMs)
	run.FinishedAt = time.UnixMilli(finishedMs)

	rows, err := s.db.QueryContext(ctx,
		`SELECT face_image, target_image, output, success, stage, reason
       FROM outcomes WHERE run_id = ? ORDER BY idx ASC`, id,
	)
	if err != nil {
		return Run{}, nil, err
	}
	defer rows.Close()

	var outcomes []domain.JobOutcome
	for rows.Next() {
		var (
			outcome       domain.JobOutcome
			success       int
			stage, reason sql.NullString
		)
		if err := rows.Scan(
			&outcome.Job.FaceImage,
			&outcome.Job.TargetImage,
			&outcome.Job.Output,
			&success,
			&stage,
			&reason,
		); err != nil {
			return Run{}, nil, err
		}
		outcome.Success = success == 1
		if outcome.Success {
			outcome.OutputPath = outcome.Job.Output
		}
		if stage.Valid {
			outcome.Stage = domain.Stage(stage.String)
		}
		if reason.Valid {
			outcome.Reason = reason.String
		}
		outcomes = append(outcomes, outcome)
	}
	return run, outcomes, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_list, started_at, finished_at, total, succeeded, failed
       FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run                  Run
			startedMs, finishedMs int64
		)
		if err := rows.Scan(&run.ID, &run.TaskList, &startedMs, &finishedMs, &run.Total, &run.Succeeded, &run.Failed); err != nil {
			return nil, err
		}
		run.StartedAt = time.UnixMilli(startedMs)
		run.FinishedAt = time.UnixMilli(finishedMs)
		out = append(out, run)
	}
	return out, rows.Err()
}
