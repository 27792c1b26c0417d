// Package results persists test runs, detects pass-to-fail regressions
// between consecutive runs, and computes trends over the capped history.
package results

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"viewsync/domain/hypothesis"
	"viewsync/internal"
	"viewsync/ports"
)

// Options tunes the store. Zero values fall back to defaults.
type Options struct {
	MaxRuns int
}

// Store owns the in-progress run and the newest-first run history. A run is
// mutable only between StartRun and FinishRun; finished runs are read-only.
type Store struct {
	mu      sync.Mutex
	repo    ports.HistoryRepository
	clock   ports.Clock
	log     *internal.Logger
	env     hypothesis.Environment
	maxRuns int

	history []hypothesis.TestRun
	current *hypothesis.TestRun
}

// NewStore creates a store and loads persisted history. A schema version
// mismatch or unreadable document discards history with a warning; it never
// fails construction.
func NewStore(ctx context.Context, repo ports.HistoryRepository, clock ports.Clock,
	env hypothesis.Environment, log *internal.Logger, opts Options) *Store {

	if opts.MaxRuns <= 0 {
		opts.MaxRuns = hypothesis.DefaultMaxRuns
	}
	if env.GoVersion == "" {
		env.GoVersion = runtime.Version()
	}

	s := &Store{
		repo:    repo,
		clock:   clock,
		log:     log,
		env:     env,
		maxRuns: opts.MaxRuns,
	}

	doc, err := repo.Load(ctx)
	switch {
	case err != nil:
		log.Warn("run history unreadable, starting empty: %v", err)
	case doc == nil:
		// First run on this store.
	case doc.Version != hypothesis.SchemaVersion:
		log.Warn("run history version %q does not match %q, discarding %d runs",
			doc.Version, hypothesis.SchemaVersion, len(doc.Runs))
	default:
		s.history = doc.Runs
	}
	return s
}

// StartRun opens a new in-progress run with a generated id and environment
// snapshot, and returns the run id.
func (s *Store) StartRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startRunLocked()
}

func (s *Store) startRunLocked() string {
	run := &hypothesis.TestRun{
		ID:          uuid.New().String(),
		Timestamp:   s.clock.Now(),
		Environment: s.env,
	}
	s.current = run
	s.log.Info("test run %s started", run.ID)
	return run.ID
}

// AddResult appends to the in-progress run, auto-starting one if none is
// open. Result order matches execution order.
func (s *Store) AddResult(r hypothesis.TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		s.startRunLocked()
	}
	s.current.Results = append(s.current.Results, r)
}

// FinishRun finalizes the in-progress run: computes the summary and duration,
// prepends it to history, prunes to the maximum, persists, and runs
// regression detection against the immediately preceding run. Returns nil if
// no run was open.
func (s *Store) FinishRun(ctx context.Context) *hypothesis.TestRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	run := s.current
	s.current = nil

	run.Summary = hypothesis.Summarize(run.Results)
	run.Duration = s.clock.Now().Sub(run.Timestamp)

	s.history = append([]hypothesis.TestRun{*run}, s.history...)
	if len(s.history) > s.maxRuns {
		s.history = s.history[:s.maxRuns]
	}
	s.persistLocked(ctx)

	for _, reg := range s.detectRegressionsLocked() {
		s.log.Error("REGRESSION %s: %q passed in the previous run and failed in run %s",
			reg.HypothesisID, reg.Name, run.ID)
	}

	s.log.Info("test run %s finished: %d/%d passed (%d failed, %d skipped) in %s",
		run.ID, run.Summary.Passed, run.Summary.Total, run.Summary.Failed,
		run.Summary.Skipped, run.Duration)
	return run
}

// DetectRegressions compares the two most recent finished runs by hypothesis
// id. Only pass-to-fail transitions count; fail-to-pass is an improvement.
func (s *Store) DetectRegressions() []hypothesis.Regression {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectRegressionsLocked()
}

func (s *Store) detectRegressionsLocked() []hypothesis.Regression {
	if len(s.history) < 2 {
		return nil
	}
	curr, prev := s.history[0], s.history[1]

	var out []hypothesis.Regression
	for _, res := range curr.Results {
		if res.Skipped {
			continue
		}
		prevRes, ok := prev.ResultFor(res.HypothesisID)
		if !ok || prevRes.Skipped {
			continue
		}
		if prevRes.Passed && !res.Passed {
			out = append(out, hypothesis.Regression{
				HypothesisID: res.HypothesisID,
				Name:         res.Name,
				Type:         hypothesis.RegressionPassToFail,
			})
		}
	}
	return out
}

// LastRun returns the most recent finished run, or nil.
func (s *Store) LastRun() *hypothesis.TestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	run := s.history[0]
	return &run
}

// AllRuns returns the finished runs, newest first.
func (s *Store) AllRuns() []hypothesis.TestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]hypothesis.TestRun(nil), s.history...)
}

// RunByID returns a finished run by id.
func (s *Store) RunByID(id string) (*hypothesis.TestRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			run := s.history[i]
			return &run, true
		}
	}
	return nil, false
}

// ClearHistory empties the run list and re-persists the empty document.
func (s *Store) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.persistLocked(ctx)
	s.log.Info("run history cleared")
}

// persistLocked writes the versioned document. Persistence failures are
// logged, never surfaced to the run lifecycle.
func (s *Store) persistLocked(ctx context.Context) {
	doc := &hypothesis.HistoryDocument{
		Version: hypothesis.SchemaVersion,
		Runs:    s.history,
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		s.log.Warn("failed to persist run history: %v", err)
	}
}
