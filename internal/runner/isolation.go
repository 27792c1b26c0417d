package runner

import (
	"time"

	"viewsync/internal"
	"viewsync/ports"
)

// boundsSlack is how far the time window is widened around the snapshot so no
// test observes clamping it did not cause itself.
const boundsSlack = 24 * time.Hour

// clockSnapshot is the single shared isolation slot: written by beforeEach,
// consumed and cleared by afterEach. The runner's re-entrancy guard keeps it
// single-owner.
type clockSnapshot struct {
	start, end time.Time
	current    time.Time
	follow     bool
}

// isolationHooks neutralizes shared mutable clock state around each test and
// restores exactly what was snapshotted afterwards, regardless of outcome.
type isolationHooks struct {
	clock    ports.ClockControl
	log      *internal.Logger
	snapshot *clockSnapshot
}

func newIsolationHooks(clock ports.ClockControl, log *internal.Logger) *isolationHooks {
	return &isolationHooks{clock: clock, log: log}
}

// beforeEach snapshots the time window, current time and follow mode, then
// suspends real-time follow and widens the window so tests that step the
// clock are not clamped by state a previous test left behind.
func (h *isolationHooks) beforeEach() {
	if h.clock == nil {
		return
	}
	start, end := h.clock.TimeBounds()
	h.snapshot = &clockSnapshot{
		start:   start,
		end:     end,
		current: h.clock.CurrentTime(),
		follow:  h.clock.FollowRealTime(),
	}

	h.clock.SetFollowRealTime(false)
	h.clock.SetTimeBounds(start.Add(-boundsSlack), end.Add(boundsSlack))
}

// afterEach restores the snapshot and clears the slot. It is a no-op when no
// snapshot is held, so it is safe after a skipped beforeEach.
func (h *isolationHooks) afterEach() {
	if h.snapshot == nil {
		return
	}
	snap := h.snapshot
	h.snapshot = nil

	// Bounds first so the restored current time is not clamped by the
	// still-widened (or a test-narrowed) window.
	h.clock.SetTimeBounds(snap.start, snap.end)
	h.clock.SetCurrentTime(snap.current)
	h.clock.SetFollowRealTime(snap.follow)
	h.log.Trace("isolation restored clock state")
}
