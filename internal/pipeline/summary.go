package pipeline

import (
	"sync"
	"time"
)

// Run modes recorded in the ledger and reported in summaries.
const (
	ModeProcess   = "process"
	ModeReprocess = "reprocess"
	ModeBackfill  = "backfill"
)

// Summary aggregates the outcome of one batch run.
type Summary struct {
	RunID     string
	Mode      string
	StartedAt time.Time
	Duration  time.Duration
	Processed int
	Skipped   int
	Failed    int
	Failures  []Failure
}

// Failure captures one failed episode for the run report.
type Failure struct {
	Podcast string
	Episode string
	Stage   string
	Message string
}

// runState accumulates per-episode outcomes across workers.
type runState struct {
	runID string
	mode  string

	mu        sync.Mutex
	processed int
	skipped   int
	failed    int
	failures  []Failure
}

func newRunState(runID, mode string) *runState {
	return &runState{runID: runID, mode: mode}
}

func (s *runState) recordProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
}

func (s *runState) recordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

func (s *runState) recordFailure(failure Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failures = append(s.failures, failure)
}

func (s *runState) counts() (processed, skipped, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed, s.skipped, s.failed
}

func (s *runState) snapshot(startedAt, finishedAt time.Time) *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures := make([]Failure, len(s.failures))
	copy(failures, s.failures)
	return &Summary{
		RunID:     s.runID,
		Mode:      s.mode,
		StartedAt: startedAt,
		Duration:  finishedAt.Sub(startedAt),
		Processed: s.processed,
		Skipped:   s.skipped,
		Failed:    s.failed,
		Failures:  failures,
	}
}
