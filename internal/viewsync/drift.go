package viewsync

import (
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/ports"
)

// maxKeptSamples bounds recorder memory; older samples age out.
const maxKeptSamples = 500

// DriftReport summarizes the recorded samples and glitches.
type DriftReport struct {
	Samples  int `json:"samples"`
	Glitches int `json:"glitches"`

	MeanLongitudeDrift float64 `json:"meanLongitudeDrift"`
	MaxLongitudeDrift  float64 `json:"maxLongitudeDrift"`
	MeanLatitudeDrift  float64 `json:"meanLatitudeDrift"`
	MaxLatitudeDrift   float64 `json:"maxLatitudeDrift"`
	MeanZoomDrift      float64 `json:"meanZoomDrift"`
	MaxZoomDrift       float64 `json:"maxZoomDrift"`

	GlitchEvents []view.GlitchEvent `json:"glitchEvents,omitempty"`
}

// DriftRecorder accumulates drift samples and flags tolerance violations as
// glitch events. A violation is a data point for later review, not an error.
type DriftRecorder struct {
	mu       sync.Mutex
	tol      view.Tolerances
	clock    ports.Clock
	log      *internal.Logger
	samples  []view.DriftSample
	glitches []view.GlitchEvent
}

// NewDriftRecorder creates a recorder with the given tolerances.
func NewDriftRecorder(tol view.Tolerances, clock ports.Clock, log *internal.Logger) *DriftRecorder {
	return &DriftRecorder{tol: tol, clock: clock, log: log}
}

// Record computes the drift between the state just written to the overlay and
// the state it actually reports, stores the sample, and records a glitch when
// any component exceeds tolerance.
func (r *DriftRecorder) Record(expected, actual view.State) view.DriftSample {
	now := r.clock.Now()
	sample := view.DriftSample{
		LongitudeDrift: actual.Longitude - expected.Longitude,
		LatitudeDrift:  actual.Latitude - expected.Latitude,
		ZoomDrift:      actual.Zoom - expected.Zoom,
		Timestamp:      now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = append(r.samples, sample)
	if len(r.samples) > maxKeptSamples {
		r.samples = r.samples[len(r.samples)-maxKeptSamples:]
	}

	if !sample.WithinTolerance(r.tol) {
		glitch := view.GlitchEvent{
			ID:        uuid.New().String(),
			Sample:    sample,
			Timestamp: now,
		}
		r.glitches = append(r.glitches, glitch)
		r.log.Warn("view drift glitch %s: lon=%.8f lat=%.8f zoom=%.4f",
			glitch.ID, sample.LongitudeDrift, sample.LatitudeDrift, sample.ZoomDrift)
	}
	return sample
}

// Report computes descriptive statistics over the kept samples.
func (r *DriftRecorder) Report() DriftReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := DriftReport{
		Samples:      len(r.samples),
		Glitches:     len(r.glitches),
		GlitchEvents: append([]view.GlitchEvent(nil), r.glitches...),
	}
	if len(r.samples) == 0 {
		return report
	}

	lon := make(stats.Float64Data, len(r.samples))
	lat := make(stats.Float64Data, len(r.samples))
	zoom := make(stats.Float64Data, len(r.samples))
	for i, s := range r.samples {
		lon[i] = math.Abs(s.LongitudeDrift)
		lat[i] = math.Abs(s.LatitudeDrift)
		zoom[i] = math.Abs(s.ZoomDrift)
	}

	report.MeanLongitudeDrift, _ = stats.Mean(lon)
	report.MaxLongitudeDrift, _ = stats.Max(lon)
	report.MeanLatitudeDrift, _ = stats.Mean(lat)
	report.MaxLatitudeDrift, _ = stats.Max(lat)
	report.MeanZoomDrift, _ = stats.Mean(zoom)
	report.MaxZoomDrift, _ = stats.Max(zoom)
	return report
}

// Reset discards all samples and glitches.
func (r *DriftRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
	r.glitches = nil
}
