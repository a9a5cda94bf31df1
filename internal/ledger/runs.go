package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, run_id, mode, started_at, finished_at, processed, skipped, failed"

// StartRun records the beginning of a batch invocation.
func (s *Store) StartRun(ctx context.Context, runID, mode string) (*Run, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("run id required")
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, mode, started_at) VALUES (?, ?, ?)`,
		runID,
		mode,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.runByID(ctx, id)
}

// FinishRun stamps the run's end time and outcome counts.
func (s *Store) FinishRun(ctx context.Context, runID string, processed, skipped, failed int) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		processed,
		skipped,
		failed,
		runID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil when none exist.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return run, nil
}

func (s *Store) runByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          int64
		runID       string
		mode        string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		processed   int
		skipped     int
		failed      int
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&mode,
		&startedRaw,
		&finishedRaw,
		&processed,
		&skipped,
		&failed,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        id,
		RunID:     runID,
		Mode:      mode,
		Processed: processed,
		Skipped:   skipped,
		Failed:    failed,
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
