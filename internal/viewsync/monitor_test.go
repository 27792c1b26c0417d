package viewsync

import (
	"testing"
	"time"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/internal/schedule"
	"viewsync/internal/testkit"
)

type fixture struct {
	base    *testkit.FakeSurface
	overlay *testkit.FakeSurface
	sched   *schedule.UpdateScheduler
	frames  *testkit.ManualFrameScheduler
	clock   *testkit.FixedClock
	capture *testkit.CaptureLog
	monitor *Monitor
}

func newFixture(t *testing.T, cfg MonitorConfig) *fixture {
	t.Helper()
	base := testkit.NewFakeSurface(view.State{Longitude: 10, Latitude: 45, Zoom: 5, Width: 800, Height: 600})
	overlay := testkit.NewFakeSurface(view.State{Width: 800, Height: 600})
	frames := testkit.NewManualFrameScheduler()
	clock := testkit.NewFixedClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	capture := testkit.NewCaptureLog()
	logger := internal.NewLoggerWithOutput(internal.LogLevelDebug, capture.Printf)
	sched := schedule.NewUpdateScheduler(overlay, frames, logger)
	mon := NewMonitor(base, overlay, sched, frames, clock, logger, cfg)
	return &fixture{base: base, overlay: overlay, sched: sched, frames: frames, clock: clock, capture: capture, monitor: mon}
}

func TestSync_AppliesZoomOffset(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 0})
	f.monitor.SetRandomSource(func() float64 { return 1 })

	f.monitor.OnBaseViewMoved()
	f.frames.RunFrame()

	applied := f.overlay.Applied()
	if len(applied) != 1 {
		t.Fatalf("expected one flush, got %d", len(applied))
	}
	batch := applied[0]
	if batch[view.PropZoom] != 5.0-view.OverlayZoomOffset {
		t.Errorf("overlay zoom should be base-offset, got %v", batch[view.PropZoom])
	}
	if batch[view.PropLongitude] != 10.0 || batch[view.PropLatitude] != 45.0 {
		t.Errorf("overlay position should match base, got %v/%v", batch[view.PropLongitude], batch[view.PropLatitude])
	}
	if batch[view.PropPitch] != 0.0 || batch[view.PropBearing] != 0.0 {
		t.Errorf("pitch/bearing must stay neutral, got %v/%v", batch[view.PropPitch], batch[view.PropBearing])
	}
}

func TestInitialState_UsesSameOffset(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 0})

	f.monitor.ApplyInitialState()

	applied := f.overlay.Applied()
	if len(applied) != 1 {
		t.Fatalf("initial state should flush immediately, got %d applies", len(applied))
	}
	if applied[0][view.PropZoom] != 5.0-view.OverlayZoomOffset {
		t.Errorf("initial zoom offset mismatch: %v", applied[0][view.PropZoom])
	}
}

func TestThrottle_DefersAndReplacesRescheduledSync(t *testing.T) {
	f := newFixture(t, MonitorConfig{ThrottleInterval: 16 * time.Millisecond, SampleRate: 0})
	f.monitor.SetRandomSource(func() float64 { return 1 })

	// First event: processed immediately (no prior sync).
	f.monitor.OnBaseViewMoved()
	// Rapid follow-ups within the interval: each cancels the previous
	// reschedule and installs one replacement.
	f.monitor.OnBaseViewMoved()
	f.monitor.OnBaseViewMoved()
	f.monitor.OnBaseViewMoved()

	// One flush callback from the first sync plus exactly one live deferred
	// sync; the redundant reschedules were canceled.
	if got := f.frames.PendingFrameCallbacks(); got != 2 {
		t.Fatalf("expected flush + one deferred sync pending, got %d callbacks", got)
	}

	f.base.ApplyState(map[string]interface{}{view.PropLongitude: 11.0})
	f.frames.RunFrame() // flush first sync, run deferred sync
	f.frames.RunFrame() // flush deferred sync

	applied := f.overlay.Applied()
	if len(applied) != 2 {
		t.Fatalf("deferred events must sync exactly once, got %d flushes", len(applied))
	}
	if applied[1][view.PropLongitude] != 11.0 {
		t.Errorf("deferred sync should read the latest base state, got %v", applied[1][view.PropLongitude])
	}
}

func TestThrottle_EventAfterIntervalSyncsImmediately(t *testing.T) {
	f := newFixture(t, MonitorConfig{ThrottleInterval: 16 * time.Millisecond, SampleRate: 0})
	f.monitor.SetRandomSource(func() float64 { return 1 })

	f.monitor.OnBaseViewMoved()
	f.clock.Advance(20 * time.Millisecond)
	f.monitor.OnBaseViewMoved()

	// Both events processed immediately; only the flush callbacks remain.
	f.frames.RunFrame()
	if got := len(f.overlay.Applied()); got != 1 {
		t.Fatalf("both syncs fall in one scheduling window, expected 1 coalesced flush, got %d", got)
	}
}

func TestCheckCanvasSize_FixesMismatch(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 0})
	f.overlay.SetCanvasSize(640, 480)

	f.monitor.CheckCanvasSize()

	applied := f.overlay.Applied()
	if len(applied) != 1 {
		t.Fatalf("size fix should flush immediately, got %d applies", len(applied))
	}
	batch := applied[0]
	if batch[view.PropWidth] != 800 || batch[view.PropHeight] != 600 {
		t.Errorf("size fix should adopt base dimensions, got %vx%v", batch[view.PropWidth], batch[view.PropHeight])
	}
	// The zoom offset rides along with every resize.
	if batch[view.PropZoom] != 5.0-view.OverlayZoomOffset {
		t.Errorf("resize must reapply the zoom offset, got %v", batch[view.PropZoom])
	}

	_, sources := f.sched.PendingSnapshot()
	if len(sources) != 0 {
		t.Errorf("size fix should leave nothing pending, got sources %v", sources)
	}
}

func TestCheckCanvasSize_WithinToleranceNoUpdate(t *testing.T) {
	f := newFixture(t, MonitorConfig{SizeTolerancePx: 2, SampleRate: 0})
	f.overlay.SetCanvasSize(799, 601)

	f.monitor.CheckCanvasSize()

	if got := len(f.overlay.Applied()); got != 0 {
		t.Fatalf("1px difference is within tolerance, got %d applies", got)
	}
}

func TestDriftProbe_RecordsGlitchBeyondTolerance(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 1.0, ProbeDelay: 50 * time.Millisecond})
	f.monitor.SetRandomSource(func() float64 { return 0 })
	f.overlay.SetDrift(0.5, 0, 0)

	f.monitor.OnBaseViewMoved()
	f.frames.RunFrame()                    // flush the sync
	f.frames.Advance(50 * time.Millisecond) // fire the probe

	report := f.monitor.DriftReport()
	if report.Samples != 1 {
		t.Fatalf("expected 1 drift sample, got %d", report.Samples)
	}
	if report.Glitches != 1 {
		t.Fatalf("0.5 degrees of longitude drift must register as a glitch, got %d", report.Glitches)
	}
	if report.MaxLongitudeDrift < 0.49 {
		t.Errorf("recorded drift magnitude too small: %v", report.MaxLongitudeDrift)
	}
	if !f.capture.Contains("glitch") {
		t.Error("glitch should be logged")
	}
}

func TestDriftProbe_RateZeroNeverSamples(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 0, ProbeDelay: 50 * time.Millisecond})
	f.monitor.SetRandomSource(func() float64 { return 0 })

	for i := 0; i < 5; i++ {
		f.monitor.OnBaseViewMoved()
		f.frames.RunFrame()
		f.clock.Advance(time.Second)
	}
	f.frames.Advance(time.Second)

	if report := f.monitor.DriftReport(); report.Samples != 0 {
		t.Fatalf("sample rate 0 must never probe, got %d samples", report.Samples)
	}
}

func TestDriftProbe_StopDiagnosticsSuspendsSampling(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 1.0, ProbeDelay: 10 * time.Millisecond})
	f.monitor.SetRandomSource(func() float64 { return 0 })
	f.monitor.StopDiagnostics()

	f.monitor.OnBaseViewMoved()
	f.frames.RunFrame()
	f.frames.Advance(10 * time.Millisecond)

	if report := f.monitor.DriftReport(); report.Samples != 0 {
		t.Fatalf("diagnostics stopped, expected no samples, got %d", report.Samples)
	}
}

func TestDriftProbe_InToleranceSampleIsNotGlitch(t *testing.T) {
	f := newFixture(t, MonitorConfig{SampleRate: 1.0, ProbeDelay: 10 * time.Millisecond})
	f.monitor.SetRandomSource(func() float64 { return 0 })

	f.monitor.OnBaseViewMoved()
	f.frames.RunFrame()
	f.frames.Advance(10 * time.Millisecond)

	report := f.monitor.DriftReport()
	if report.Samples != 1 {
		t.Fatalf("expected 1 sample, got %d", report.Samples)
	}
	if report.Glitches != 0 {
		t.Fatalf("zero drift must not register as a glitch, got %d", report.Glitches)
	}
}
