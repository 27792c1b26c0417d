package schedule

import (
	"sync"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/ports"
)

// UpdateScheduler coalesces partial view-state mutations into a single flush
// per display-refresh cycle. Callers never touch the rendering surface
// directly; they queue partial updates and the scheduler applies the merged
// result in one ApplyState call when the next frame fires.
//
// State machine: idle -> pending (first QueueUpdate in a window) -> flushing
// -> idle. Repeated QueueUpdate calls within a window only extend the pending
// set; at most one flush happens per window.
type UpdateScheduler struct {
	mu      sync.Mutex
	surface ports.ViewSurface
	frames  ports.FrameScheduler
	log     *internal.Logger

	pending     map[string]interface{}
	sources     []string
	cancelFlush ports.CancelFunc

	flushCount int64
}

// NewUpdateScheduler creates a scheduler bound to one rendering surface.
func NewUpdateScheduler(surface ports.ViewSurface, frames ports.FrameScheduler, log *internal.Logger) *UpdateScheduler {
	return &UpdateScheduler{
		surface: surface,
		frames:  frames,
		log:     log,
	}
}

// QueueUpdate merges partial into the pending update. Later values for the
// same key override earlier ones within the same window (last-write-wins per
// key). The sourceTag is appended to the window's provenance list. If no
// flush is scheduled yet, one is scheduled for the next frame.
func (s *UpdateScheduler) QueueUpdate(partial map[string]interface{}, sourceTag string) {
	if len(partial) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.pending = make(map[string]interface{}, len(partial))
	}
	for k, v := range partial {
		s.pending[k] = v
	}
	s.sources = append(s.sources, sourceTag)

	if s.cancelFlush == nil {
		s.cancelFlush = s.frames.AfterNextFrame(s.Flush)
	}
}

// Flush applies the accumulated pending state to the rendering surface in one
// call and clears it. Flushing with the surface not yet initialized is a
// transient precondition: the pending set is kept and a warning is logged, so
// a later window can retry.
func (s *UpdateScheduler) Flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.cancelFlush = nil
		s.mu.Unlock()
		return
	}
	if s.surface == nil || !s.surface.Ready() {
		s.cancelFlush = nil
		s.mu.Unlock()
		s.log.Warn("update flush skipped: rendering surface not initialized")
		return
	}

	batch := s.pending
	sources := s.sources
	s.pending = nil
	s.sources = nil
	s.cancelFlush = nil
	s.flushCount++
	s.mu.Unlock()

	if err := s.surface.ApplyState(batch); err != nil {
		s.log.Error("update flush failed: %v", err)
		return
	}
	s.log.Debug("flushed %d properties (categories=%v, sources=%v)",
		len(batch), view.CategoriesOf(batch), dedupe(sources))
}

// FlushNow cancels any flush scheduled for the next frame and flushes the
// pending state immediately. Used for operations that must be visible before
// the next frame, such as an explicit resize.
func (s *UpdateScheduler) FlushNow() {
	s.mu.Lock()
	if s.cancelFlush != nil {
		s.cancelFlush()
		s.cancelFlush = nil
	}
	s.mu.Unlock()

	s.Flush()
}

// HasPendingUpdates reports whether any queued state awaits a flush.
func (s *UpdateScheduler) HasPendingUpdates() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// PendingSnapshot returns a copy of the pending update and its provenance
// list, for introspection.
func (s *UpdateScheduler) PendingSnapshot() (map[string]interface{}, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]interface{}, len(s.pending))
	for k, v := range s.pending {
		out[k] = v
	}
	return out, append([]string(nil), s.sources...)
}

// FlushCount returns how many flushes have reached the surface.
func (s *UpdateScheduler) FlushCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushCount
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
