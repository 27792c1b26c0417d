package ports

import (
	"time"
)

// ClockControl is the boundary to the application's simulation clock: the
// time window the UI clamps to, the current displayed time, and whether the
// clock follows real time. Hypothesis tests snapshot and restore this state
// through the runner's isolation hooks.
type ClockControl interface {
	TimeBounds() (start, end time.Time)
	SetTimeBounds(start, end time.Time)

	CurrentTime() time.Time
	SetCurrentTime(t time.Time)

	// FollowRealTime reports whether the clock tracks the wall clock; tests
	// suspend it so stepping the clock is deterministic.
	FollowRealTime() bool
	SetFollowRealTime(follow bool)
}

// SelectionStore is the boundary to the entity-selection state (satellites,
// sensors, lists). Tests that toggle selections must restore them before
// returning.
type SelectionStore interface {
	Items() []string
	Selected(id string) bool
	SetSelected(id string, selected bool)
}
