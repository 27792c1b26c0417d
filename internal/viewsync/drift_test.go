package viewsync

import (
	"testing"
	"time"

	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/internal/testkit"
)

func newRecorder(t *testing.T) (*DriftRecorder, *testkit.FixedClock) {
	t.Helper()
	clock := testkit.NewFixedClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	logger := internal.NewLoggerWithOutput(internal.LogLevelError, func(string, ...interface{}) {})
	return NewDriftRecorder(view.DefaultTolerances(), clock, logger), clock
}

func TestRecorder_ReportStatistics(t *testing.T) {
	rec, clock := newRecorder(t)

	expected := view.State{Longitude: 10, Latitude: 45, Zoom: 4}
	rec.Record(expected, view.State{Longitude: 10.2, Latitude: 45, Zoom: 4})
	clock.Advance(time.Second)
	rec.Record(expected, view.State{Longitude: 9.6, Latitude: 45, Zoom: 4.005})

	report := rec.Report()
	if report.Samples != 2 {
		t.Fatalf("expected 2 samples, got %d", report.Samples)
	}
	// Means are over absolute drift: (0.2 + 0.4) / 2.
	if diff := report.MeanLongitudeDrift - 0.3; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("mean longitude drift: want 0.3, got %v", report.MeanLongitudeDrift)
	}
	if diff := report.MaxLongitudeDrift - 0.4; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("max longitude drift: want 0.4, got %v", report.MaxLongitudeDrift)
	}
	// Zoom drift of 0.005 stays inside the 0.01 tolerance, longitude does not.
	if report.Glitches != 2 {
		t.Errorf("both samples exceed longitude tolerance, want 2 glitches, got %d", report.Glitches)
	}
}

func TestRecorder_SignedSampleWithTimestamp(t *testing.T) {
	rec, clock := newRecorder(t)

	sample := rec.Record(view.State{Zoom: 4}, view.State{Zoom: 3.9})
	if sample.ZoomDrift >= 0 {
		t.Errorf("drift components keep their sign, got %v", sample.ZoomDrift)
	}
	if !sample.Timestamp.Equal(clock.Now()) {
		t.Errorf("sample timestamp should come from the injected clock")
	}
}

func TestRecorder_Reset(t *testing.T) {
	rec, _ := newRecorder(t)
	rec.Record(view.State{}, view.State{Longitude: 1})

	rec.Reset()

	report := rec.Report()
	if report.Samples != 0 || report.Glitches != 0 {
		t.Fatalf("reset should clear samples and glitches, got %+v", report)
	}
}
