package runner

import (
	"context"
	"time"

	"viewsync/domain/hypothesis"
	"viewsync/domain/view"
	errs "viewsync/internal/errors"
)

func errNoMonitor() error {
	return errs.PreconditionNotMet("sync monitor unavailable")
}

// AblationBaseline captures drift diagnostics at a point in time for later
// comparison.
type AblationBaseline struct {
	MeanLongitudeDrift float64   `json:"meanLongitudeDrift"`
	MeanLatitudeDrift  float64   `json:"meanLatitudeDrift"`
	MeanZoomDrift      float64   `json:"meanZoomDrift"`
	Glitches           int       `json:"glitches"`
	Samples            int       `json:"samples"`
	CapturedAt         time.Time `json:"capturedAt"`
}

func (b AblationBaseline) combinedDrift() float64 {
	return b.MeanLongitudeDrift + b.MeanLatitudeDrift + b.MeanZoomDrift
}

// AblationResult reports a study: the suite run, and, when a baseline was
// available, the post-interaction measurement and whether it improved on the
// baseline.
type AblationResult struct {
	Run               *hypothesis.TestRun `json:"run"`
	BaselineAvailable bool                `json:"baselineAvailable"`
	Baseline          *AblationBaseline   `json:"baseline,omitempty"`
	Current           *AblationBaseline   `json:"current,omitempty"`
	Improved          bool                `json:"improved"`
	Notes             string              `json:"notes,omitempty"`
}

// SaveBaseline records the monitor's current drift diagnostics as the
// baseline for future ablation studies.
func (r *Runner) SaveBaseline() (*AblationBaseline, error) {
	if r.tc.Monitor == nil {
		return nil, errNoMonitor()
	}
	report := r.tc.Monitor.DriftReport()
	b := &AblationBaseline{
		MeanLongitudeDrift: report.MeanLongitudeDrift,
		MeanLatitudeDrift:  report.MeanLatitudeDrift,
		MeanZoomDrift:      report.MeanZoomDrift,
		Glitches:           report.Glitches,
		Samples:            report.Samples,
		CapturedAt:         r.clock.Now(),
	}
	r.baseline = b
	r.log.Info("ablation baseline saved: %d samples, %d glitches", b.Samples, b.Glitches)
	return b, nil
}

// RunAblationStudy runs the full suite, then, only if a baseline was saved,
// performs the fixed pan-then-zoom interaction sequence with every sync
// probed, and compares the resulting drift to the baseline. Without a
// baseline the study still succeeds; it just reports that no comparison was
// possible.
func (r *Runner) RunAblationStudy(ctx context.Context) (*AblationResult, error) {
	run, err := r.RunAll(ctx)
	if err != nil {
		return nil, err
	}
	result := &AblationResult{Run: run}

	if r.baseline == nil {
		result.Notes = "no saved baseline; measurements recorded but not compared"
		r.log.Info("ablation study: %s", result.Notes)
		return result, nil
	}
	if r.tc.Monitor == nil || r.tc.BaseView == nil || r.tc.Scheduler == nil {
		result.Notes = "interaction sequence skipped: view collaborators unavailable"
		return result, nil
	}

	current, err := r.measureInteraction(ctx)
	if err != nil {
		return nil, err
	}

	result.BaselineAvailable = true
	result.Baseline = r.baseline
	result.Current = current
	result.Improved = current.combinedDrift() <= r.baseline.combinedDrift() &&
		current.Glitches <= r.baseline.Glitches
	if result.Improved {
		r.log.Info("ablation study: current drift improves on baseline")
	} else {
		r.log.Warn("ablation study: current drift does not improve on baseline")
	}
	return result, nil
}

// measureInteraction drives the fixed pan-then-zoom sequence against the base
// view with drift probing forced on, restoring the view and sampling rate
// afterwards.
func (r *Runner) measureInteraction(ctx context.Context) (*AblationBaseline, error) {
	m := r.tc.Monitor
	base := r.tc.BaseView

	origState, err := base.State()
	if err != nil {
		return nil, err
	}
	origRate := m.SampleRate()
	m.ResetDiagnostics()
	m.StartDiagnostics()
	m.SetSampleRate(1.0)
	defer func() {
		m.SetSampleRate(origRate)
		// Put the view back where the user left it.
		_ = base.ApplyState(map[string]interface{}{
			view.PropLongitude: origState.Longitude,
			view.PropLatitude:  origState.Latitude,
			view.PropZoom:      origState.Zoom,
		})
		m.OnBaseViewMoved()
		r.tc.Scheduler.FlushNow()
	}()

	// Pan.
	if err := base.ApplyState(map[string]interface{}{
		view.PropLongitude: origState.Longitude + 0.5,
		view.PropLatitude:  origState.Latitude + 0.25,
	}); err != nil {
		return nil, err
	}
	m.OnBaseViewMoved()
	r.tc.Scheduler.FlushNow()
	if err := r.settleWait(ctx); err != nil {
		return nil, err
	}

	// Zoom.
	if err := base.ApplyState(map[string]interface{}{
		view.PropZoom: origState.Zoom + 1,
	}); err != nil {
		return nil, err
	}
	m.OnBaseViewZoomed()
	r.tc.Scheduler.FlushNow()
	if err := r.settleWait(ctx); err != nil {
		return nil, err
	}
	// One more settle so the delayed drift probes have fired.
	if err := r.settleWait(ctx); err != nil {
		return nil, err
	}

	report := m.DriftReport()
	return &AblationBaseline{
		MeanLongitudeDrift: report.MeanLongitudeDrift,
		MeanLatitudeDrift:  report.MeanLatitudeDrift,
		MeanZoomDrift:      report.MeanZoomDrift,
		Glitches:           report.Glitches,
		Samples:            report.Samples,
		CapturedAt:         r.clock.Now(),
	}, nil
}
