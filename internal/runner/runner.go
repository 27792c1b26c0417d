// Package runner sequences hypothesis execution: isolation hooks around each
// test, per-test outcome capture, settle delays between tests, and an
// ablation mode comparing current drift measurements against a saved
// baseline.
package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"viewsync/domain/hypothesis"
	"viewsync/internal"
	errs "viewsync/internal/errors"
	"viewsync/internal/registry"
	"viewsync/internal/results"
	"viewsync/ports"
)

// Config tunes the runner. Zero values fall back to defaults.
type Config struct {
	// SettleDelay is the pause after each test, letting asynchronous side
	// effects and the UI settle before the next one starts. Zero selects the
	// default; a negative value disables the pause entirely.
	SettleDelay time.Duration
}

// DefaultSettleDelay between sequential test executions.
const DefaultSettleDelay = 100 * time.Millisecond

// Runner executes hypotheses from the registry in registration order. Only
// one run (whole-suite or single) may execute at a time; the guard keeps the
// isolation snapshot single-owner.
type Runner struct {
	reg    *registry.Registry
	store  *results.Store
	tc     *registry.TestContext
	frames ports.FrameScheduler
	clock  ports.Clock
	log    *internal.Logger
	settle time.Duration

	guard     *semaphore.Weighted
	isolation *isolationHooks

	baseline *AblationBaseline
}

// New creates a runner over the given catalog and collaborator context.
func New(reg *registry.Registry, store *results.Store, tc *registry.TestContext,
	frames ports.FrameScheduler, clock ports.Clock, log *internal.Logger, cfg Config) *Runner {

	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	} else if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}

	return &Runner{
		reg:       reg,
		store:     store,
		tc:        tc,
		frames:    frames,
		clock:     clock,
		log:       log,
		settle:    cfg.SettleDelay,
		guard:     semaphore.NewWeighted(1),
		isolation: newIsolationHooks(tc.Clock, log),
	}
}

// RunAll executes the full suite in registration order, records each result,
// and returns the finalized run. A concurrent run attempt fails with
// CodeRunInProgress.
func (r *Runner) RunAll(ctx context.Context) (*hypothesis.TestRun, error) {
	if !r.guard.TryAcquire(1) {
		return nil, errs.RunInProgress()
	}
	defer r.guard.Release(1)

	r.store.StartRun()
	for _, h := range r.reg.GetAll() {
		r.store.AddResult(r.executeOne(ctx, h))
		if err := r.settleWait(ctx); err != nil {
			r.log.Warn("suite interrupted: %v", err)
			break
		}
	}
	return r.store.FinishRun(ctx), nil
}

// RunSingle executes one hypothesis with the same isolation sequence, without
// opening a run-level aggregate record.
func (r *Runner) RunSingle(ctx context.Context, id string) (*hypothesis.TestResult, error) {
	if !r.guard.TryAcquire(1) {
		return nil, errs.RunInProgress()
	}
	defer r.guard.Release(1)

	h, ok := r.reg.Get(id)
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("hypothesis %s", id))
	}
	res := r.executeOne(ctx, h)
	return &res, nil
}

// executeOne wraps a single test: beforeEach, logged execution, duration
// capture, afterEach. The restore hook runs even when the test panics.
func (r *Runner) executeOne(ctx context.Context, h *registry.Hypothesis) hypothesis.TestResult {
	r.isolation.beforeEach()
	defer r.isolation.afterEach()

	r.log.Info("hypothesis %s: %s", h.ID, h.Statement)
	r.log.Debug("prediction: %s", h.Prediction)

	start := r.clock.Now()
	outcome := r.runProtected(ctx, h)
	duration := r.clock.Now().Sub(start)

	// Advisory hypotheses report their measurement but never gate the suite.
	if h.Advisory && !outcome.Skipped {
		outcome.Passed = true
	}

	switch {
	case outcome.Skipped:
		r.log.Info("hypothesis %s skipped", h.ID)
	case outcome.Passed:
		r.log.Info("hypothesis %s passed (%s)", h.ID, duration)
	default:
		r.log.Warn("hypothesis %s FAILED (%s); causal chain: %v", h.ID, duration, h.CausalChain)
	}

	return hypothesis.TestResult{
		HypothesisID: h.ID,
		Name:         h.Name,
		Passed:       outcome.Passed,
		Skipped:      outcome.Skipped,
		Details:      outcome.Details,
		Duration:     duration,
		Timestamp:    start,
	}
}

// runProtected converts missing collaborators into a uniform skip and panics
// into failed outcomes carrying the message, so one broken test never aborts
// the suite.
func (r *Runner) runProtected(ctx context.Context, h *registry.Hypothesis) (out hypothesis.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = hypothesis.Errored(fmt.Sprint(p))
		}
	}()

	if cap, missing := r.tc.MissingCapability(h.Requires); missing {
		return hypothesis.Skip(fmt.Sprintf("collaborator unavailable: %s", cap))
	}
	return h.Run(ctx, r.tc)
}

// settleWait pauses between tests via the frame scheduler, so tests drive it
// with a virtual clock.
func (r *Runner) settleWait(ctx context.Context) error {
	if r.settle <= 0 {
		return nil
	}
	done := make(chan struct{})
	cancel := r.frames.AfterDelay(r.settle, func() { close(done) })
	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-done:
		return nil
	}
}
