// Package testkit provides deterministic fakes for the cooperative scheduling
// and collaborator boundaries: a manually stepped frame scheduler, a fixed
// clock, in-memory surfaces and stores. Suites built on these run without
// real timers.
package testkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"viewsync/domain/hypothesis"
	"viewsync/domain/view"
	"viewsync/ports"
)

// ManualFrameScheduler implements ports.FrameScheduler with explicit stepping.
// RunFrame fires the callbacks registered for the next frame; Advance moves a
// virtual clock past delay callbacks.
type ManualFrameScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	frame   []*entry
	delayed []*entry
}

type entry struct {
	fn       func()
	at       time.Duration
	canceled bool
}

// NewManualFrameScheduler creates an empty scheduler at virtual time zero.
func NewManualFrameScheduler() *ManualFrameScheduler {
	return &ManualFrameScheduler{}
}

func (m *ManualFrameScheduler) AfterNextFrame(fn func()) ports.CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{fn: fn}
	m.frame = append(m.frame, e)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e.canceled = true
	}
}

func (m *ManualFrameScheduler) AfterDelay(d time.Duration, fn func()) ports.CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{fn: fn, at: m.now + d}
	m.delayed = append(m.delayed, e)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e.canceled = true
	}
}

// RunFrame fires one display-refresh callback cycle. Callbacks registered
// while a frame is running land in the following frame.
func (m *ManualFrameScheduler) RunFrame() {
	m.mu.Lock()
	batch := m.frame
	m.frame = nil
	m.mu.Unlock()

	for _, e := range batch {
		if !e.canceled {
			e.fn()
		}
	}
}

// Advance moves the virtual clock forward and fires due delay callbacks in
// registration order.
func (m *ManualFrameScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due, rest []*entry
	for _, e := range m.delayed {
		if e.at <= m.now {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	m.delayed = rest
	m.mu.Unlock()

	for _, e := range due {
		if !e.canceled {
			e.fn()
		}
	}
}

// PendingDelayed returns how many uncanceled delay callbacks have not fired
// yet.
func (m *ManualFrameScheduler) PendingDelayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.delayed {
		if !e.canceled {
			n++
		}
	}
	return n
}

// PendingFrameCallbacks returns how many uncanceled callbacks await the next
// frame.
func (m *ManualFrameScheduler) PendingFrameCallbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.frame {
		if !e.canceled {
			n++
		}
	}
	return n
}

// FakeSurface is an in-memory ports.ViewSurface. ApplyState merges known
// property keys into the held view state and records every applied batch.
type FakeSurface struct {
	mu        sync.Mutex
	ready     bool
	state     view.State
	applied   []map[string]interface{}
	applyErr  error
	driftLon  float64
	driftLat  float64
	driftZoom float64
}

// NewFakeSurface returns a ready surface with the given initial state.
func NewFakeSurface(initial view.State) *FakeSurface {
	return &FakeSurface{ready: true, state: initial}
}

func (f *FakeSurface) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// SetReady toggles the initialized flag.
func (f *FakeSurface) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

// SetApplyError makes subsequent ApplyState calls fail with err.
func (f *FakeSurface) SetApplyError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyErr = err
}

// SetDrift offsets the reported state relative to the written state, to
// simulate an overlay that lags or misreports.
func (f *FakeSurface) SetDrift(lon, lat, zoom float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.driftLon, f.driftLat, f.driftZoom = lon, lat, zoom
}

func (f *FakeSurface) ApplyState(partial map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}

	batch := make(map[string]interface{}, len(partial))
	for k, v := range partial {
		batch[k] = v
	}
	f.applied = append(f.applied, batch)

	for k, v := range partial {
		switch k {
		case view.PropLongitude:
			f.state.Longitude = toFloat(v)
		case view.PropLatitude:
			f.state.Latitude = toFloat(v)
		case view.PropZoom:
			f.state.Zoom = toFloat(v)
		case view.PropPitch:
			f.state.Pitch = toFloat(v)
		case view.PropBearing:
			f.state.Bearing = toFloat(v)
		case view.PropWidth:
			f.state.Width = toInt(v)
		case view.PropHeight:
			f.state.Height = toInt(v)
		}
	}
	return nil
}

func (f *FakeSurface) State() (view.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state
	st.Longitude += f.driftLon
	st.Latitude += f.driftLat
	st.Zoom += f.driftZoom
	return st, nil
}

func (f *FakeSurface) CanvasSize() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Width, f.state.Height, nil
}

// SetCanvasSize resizes the surface directly, bypassing ApplyState.
func (f *FakeSurface) SetCanvasSize(w, h int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Width, f.state.Height = w, h
}

// Applied returns every batch passed to ApplyState, oldest first.
func (f *FakeSurface) Applied() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.applied...)
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int:
		return x
	case float64:
		return int(x)
	}
	return 0
}

// FixedClock is a settable ports.Clock.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock starts the clock at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// MemoryHistory is an in-memory ports.HistoryRepository.
type MemoryHistory struct {
	mu      sync.Mutex
	doc     *hypothesis.HistoryDocument
	saveErr error
	saves   int
}

func NewMemoryHistory() *MemoryHistory { return &MemoryHistory{} }

// Seed stores a document directly, as if persisted by an earlier process.
func (m *MemoryHistory) Seed(doc *hypothesis.HistoryDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
}

// SetSaveError makes subsequent Save calls fail with err.
func (m *MemoryHistory) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *MemoryHistory) Load(ctx context.Context) (*hypothesis.HistoryDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc, nil
}

func (m *MemoryHistory) Save(ctx context.Context, doc *hypothesis.HistoryDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *doc
	copied.Runs = append([]hypothesis.TestRun(nil), doc.Runs...)
	m.doc = &copied
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryHistory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FakeClockControl is an in-memory ports.ClockControl.
type FakeClockControl struct {
	mu      sync.Mutex
	start   time.Time
	end     time.Time
	current time.Time
	follow  bool
}

// NewFakeClockControl creates a clock control with the given window and the
// current time at the window start, following real time.
func NewFakeClockControl(start, end time.Time) *FakeClockControl {
	return &FakeClockControl{start: start, end: end, current: start, follow: true}
}

func (c *FakeClockControl) TimeBounds() (time.Time, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start, c.end
}

func (c *FakeClockControl) SetTimeBounds(start, end time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start, c.end = start, end
}

func (c *FakeClockControl) CurrentTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClockControl) SetCurrentTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Clamp to the active window, as the real clock UI does.
	if t.Before(c.start) {
		t = c.start
	}
	if t.After(c.end) {
		t = c.end
	}
	c.current = t
}

func (c *FakeClockControl) FollowRealTime() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.follow
}

func (c *FakeClockControl) SetFollowRealTime(follow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.follow = follow
}

// FakeSelectionStore is an in-memory ports.SelectionStore.
type FakeSelectionStore struct {
	mu       sync.Mutex
	items    []string
	selected map[string]bool
}

func NewFakeSelectionStore(items ...string) *FakeSelectionStore {
	return &FakeSelectionStore{items: items, selected: map[string]bool{}}
}

func (s *FakeSelectionStore) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...)
}

func (s *FakeSelectionStore) Selected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[id]
}

func (s *FakeSelectionStore) SetSelected(id string, sel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[id] = sel
}

// CaptureLog collects log lines for assertions.
type CaptureLog struct {
	mu    sync.Mutex
	lines []string
}

func NewCaptureLog() *CaptureLog { return &CaptureLog{} }

// Printf is an internal.Printf that records the formatted line.
func (c *CaptureLog) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

// Lines returns every captured line.
func (c *CaptureLog) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Contains reports whether any captured line contains substr.
func (c *CaptureLog) Contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
