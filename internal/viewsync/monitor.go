// Package viewsync keeps an externally rendered GPU overlay coordinate
// consistent with the tile base map it is layered over, and measures how far
// the two views drift apart under throttled operation.
package viewsync

import (
	"math/rand"
	"sync"
	"time"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/internal/schedule"
	"viewsync/ports"
)

// Source tags carried on queued updates.
const (
	SourceViewState = "sync:viewState"
	SourceSizeFix   = "sync:size-fix"
	SourceInit      = "sync:init"
)

// MonitorConfig tunes the sync monitor. Zero values fall back to defaults.
type MonitorConfig struct {
	// ThrottleInterval is the minimum spacing between processed sync events;
	// events arriving faster are deferred to the next frame, never dropped.
	ThrottleInterval time.Duration

	// SampleRate is the probability that a sync is followed by an async drift
	// probe. Tests pin it to 0 or 1 for determinism.
	SampleRate float64

	// ProbeDelay is how long after a sync the overlay's actual state is
	// re-read for a drift sample.
	ProbeDelay time.Duration

	// SizeTolerancePx is the per-dimension pixel slack before a canvas size
	// mismatch triggers a correcting update.
	SizeTolerancePx int

	Tolerances view.Tolerances
}

// DefaultMonitorConfig returns the nominal 60 Hz configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ThrottleInterval: 16 * time.Millisecond,
		SampleRate:       0.1,
		ProbeDelay:       50 * time.Millisecond,
		SizeTolerancePx:  2,
		Tolerances:       view.DefaultTolerances(),
	}
}

// Monitor recomputes the overlay's expected state from the base view on every
// move/zoom notification and enqueues it through the update scheduler. It
// never mutates the overlay directly.
type Monitor struct {
	base    ports.ViewSurface
	overlay ports.ViewSurface
	sched   *schedule.UpdateScheduler
	frames  ports.FrameScheduler
	clock   ports.Clock
	log     *internal.Logger
	cfg     MonitorConfig

	recorder *DriftRecorder
	random   func() float64

	mu       sync.Mutex
	lastSync time.Time
	resched  ports.CancelFunc
	sampling bool
}

// NewMonitor creates a sync monitor. The scheduler must be bound to the
// overlay surface.
func NewMonitor(base, overlay ports.ViewSurface, sched *schedule.UpdateScheduler,
	frames ports.FrameScheduler, clock ports.Clock, log *internal.Logger, cfg MonitorConfig) *Monitor {

	def := DefaultMonitorConfig()
	if cfg.ThrottleInterval <= 0 {
		cfg.ThrottleInterval = def.ThrottleInterval
	}
	if cfg.ProbeDelay <= 0 {
		cfg.ProbeDelay = def.ProbeDelay
	}
	if cfg.SizeTolerancePx <= 0 {
		cfg.SizeTolerancePx = def.SizeTolerancePx
	}
	if cfg.Tolerances == (view.Tolerances{}) {
		cfg.Tolerances = def.Tolerances
	}

	return &Monitor{
		base:     base,
		overlay:  overlay,
		sched:    sched,
		frames:   frames,
		clock:    clock,
		log:      log,
		cfg:      cfg,
		recorder: NewDriftRecorder(cfg.Tolerances, clock, log),
		random:   rand.Float64,
		sampling: true,
	}
}

// SetRandomSource replaces the sampling RNG, so tests can force or suppress
// drift probes deterministically.
func (m *Monitor) SetRandomSource(fn func() float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.random = fn
}

// SetSampleRate adjusts the drift-probe probability at runtime.
func (m *Monitor) SetSampleRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.SampleRate = rate
}

// SampleRate returns the current drift-probe probability.
func (m *Monitor) SampleRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.SampleRate
}

// StartDiagnostics enables drift sampling.
func (m *Monitor) StartDiagnostics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampling = true
}

// StopDiagnostics disables drift sampling; syncs continue unaffected.
func (m *Monitor) StopDiagnostics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampling = false
}

// DriftReport returns the recorder's current statistics.
func (m *Monitor) DriftReport() DriftReport {
	return m.recorder.Report()
}

// ResetDiagnostics discards recorded drift samples and glitches.
func (m *Monitor) ResetDiagnostics() {
	m.recorder.Reset()
}

// ExpectedOverlayState derives the overlay's target state from a base view
// state. The overlay zoom is offset by view.OverlayZoomOffset; pitch and
// bearing stay neutral for the 2-D projection.
func (m *Monitor) ExpectedOverlayState(base view.State) map[string]interface{} {
	return map[string]interface{}{
		view.PropLongitude: base.Longitude,
		view.PropLatitude:  base.Latitude,
		view.PropZoom:      base.Zoom - view.OverlayZoomOffset,
		view.PropPitch:     0.0,
		view.PropBearing:   0.0,
	}
}

// ApplyInitialState aligns the overlay with the base view once at startup,
// flushing before the next frame so the first render is already consistent.
func (m *Monitor) ApplyInitialState() {
	base, err := m.base.State()
	if err != nil {
		m.log.Warn("initial sync skipped: base view unavailable: %v", err)
		return
	}
	m.sched.QueueUpdate(m.ExpectedOverlayState(base), SourceInit)
	m.sched.FlushNow()
}

// OnBaseViewMoved handles a move/zoom notification from the base view. Events
// arriving within the throttle interval are deferred to the next frame; a
// previously deferred sync is canceled and replaced, never duplicated.
func (m *Monitor) OnBaseViewMoved() {
	now := m.clock.Now()

	m.mu.Lock()
	if m.resched != nil {
		m.resched()
		m.resched = nil
	}
	if now.Sub(m.lastSync) < m.cfg.ThrottleInterval {
		m.resched = m.frames.AfterNextFrame(func() {
			m.mu.Lock()
			m.resched = nil
			m.mu.Unlock()
			m.syncNow()
		})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.syncNow()
}

// OnBaseViewZoomed handles a zoom notification; zooms follow the same path as
// moves so the zoom offset is applied identically.
func (m *Monitor) OnBaseViewZoomed() {
	m.OnBaseViewMoved()
}

func (m *Monitor) syncNow() {
	base, err := m.base.State()
	if err != nil {
		m.log.Warn("sync skipped: base view unavailable: %v", err)
		return
	}

	expected := m.ExpectedOverlayState(base)
	m.sched.QueueUpdate(expected, SourceViewState)

	m.mu.Lock()
	m.lastSync = m.clock.Now()
	shouldSample := m.sampling && m.random() < m.cfg.SampleRate
	m.mu.Unlock()

	if shouldSample {
		m.scheduleDriftProbe(base)
	}
}

// CheckCanvasSize compares the base surface and overlay canvas dimensions and
// enqueues a size-correcting update when they disagree beyond the pixel
// tolerance. The expected view state rides along so the zoom offset holds
// across the resize.
func (m *Monitor) CheckCanvasSize() {
	bw, bh, err := m.base.CanvasSize()
	if err != nil {
		m.log.Warn("size check skipped: base view unavailable: %v", err)
		return
	}
	ow, oh, err := m.overlay.CanvasSize()
	if err != nil {
		m.log.Warn("size check skipped: overlay unavailable: %v", err)
		return
	}

	if intAbs(bw-ow) <= m.cfg.SizeTolerancePx && intAbs(bh-oh) <= m.cfg.SizeTolerancePx {
		return
	}

	m.log.Info("canvas size mismatch: base %dx%d overlay %dx%d", bw, bh, ow, oh)
	fix := map[string]interface{}{
		view.PropWidth:  bw,
		view.PropHeight: bh,
	}
	m.sched.QueueUpdate(fix, SourceSizeFix)
	if base, err := m.base.State(); err == nil {
		m.sched.QueueUpdate(m.ExpectedOverlayState(base), SourceViewState)
	}
	// A resize must be visible before the next frame.
	m.sched.FlushNow()
}

// scheduleDriftProbe re-reads the overlay's actual state shortly after a sync
// and records the drift against what was just written.
func (m *Monitor) scheduleDriftProbe(base view.State) {
	expected := view.State{
		Longitude: base.Longitude,
		Latitude:  base.Latitude,
		Zoom:      base.Zoom - view.OverlayZoomOffset,
	}
	m.frames.AfterDelay(m.cfg.ProbeDelay, func() {
		actual, err := m.overlay.State()
		if err != nil {
			m.log.Warn("drift probe skipped: overlay unavailable: %v", err)
			return
		}
		m.recorder.Record(expected, actual)
	})
}

func intAbs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
