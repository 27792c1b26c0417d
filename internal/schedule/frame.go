package schedule

import (
	"time"

	"viewsync/ports"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// TimerFrameScheduler binds the FrameScheduler port to real timers: the next
// "frame" is one frame interval away. Unit tests use the manual scheduler in
// internal/testkit instead.
type TimerFrameScheduler struct {
	frameInterval time.Duration
}

// NewTimerFrameScheduler creates a timer-backed frame scheduler. A zero
// interval falls back to DefaultFrameInterval.
func NewTimerFrameScheduler(frameInterval time.Duration) *TimerFrameScheduler {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &TimerFrameScheduler{frameInterval: frameInterval}
}

// AfterNextFrame schedules fn for the next frame tick.
func (t *TimerFrameScheduler) AfterNextFrame(fn func()) ports.CancelFunc {
	timer := time.AfterFunc(t.frameInterval, fn)
	return func() { timer.Stop() }
}

// AfterDelay schedules fn after d.
func (t *TimerFrameScheduler) AfterDelay(d time.Duration, fn func()) ports.CancelFunc {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}
