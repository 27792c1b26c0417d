package ports

import (
	"time"

	"viewsync/domain/view"
)

// ViewSurface is the boundary to an external rendering view (the tile base
// map or the GPU overlay). The renderer itself is opaque; only its view state
// and canvas geometry are visible here.
type ViewSurface interface {
	// Ready reports whether the underlying renderer has initialized. State
	// mutations against a non-ready surface are dropped by callers as a
	// transient precondition, not an error.
	Ready() bool

	// ApplyState applies a partial property map (view.Prop* keys) to the
	// surface in a single call.
	ApplyState(partial map[string]interface{}) error

	// State returns the surface's current reported view state.
	State() (view.State, error)

	// CanvasSize returns the rendering canvas dimensions in pixels.
	CanvasSize() (width, height int, err error)
}

// CancelFunc cancels a scheduled callback. Calling it after the callback has
// fired is a no-op.
type CancelFunc func()

// FrameScheduler abstracts cooperative display-refresh scheduling. Production
// code binds it to real refresh/timer primitives; tests bind it to a manual
// implementation so suites run without real timing.
type FrameScheduler interface {
	// AfterNextFrame runs fn on the next display-refresh callback.
	AfterNextFrame(fn func()) CancelFunc

	// AfterDelay runs fn once d has elapsed.
	AfterDelay(d time.Duration, fn func()) CancelFunc
}

// Clock supplies the current time. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
