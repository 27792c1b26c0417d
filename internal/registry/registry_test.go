package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"viewsync/domain/hypothesis"
	"viewsync/domain/view"
	"viewsync/internal"
	"viewsync/internal/schedule"
	"viewsync/internal/testkit"
	"viewsync/internal/viewsync"
)

func passingHypothesis(id string, cat hypothesis.Category) Hypothesis {
	return Hypothesis{
		ID:       id,
		Name:     id,
		Category: cat,
		Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
			return hypothesis.Pass(nil)
		},
	}
}

func TestRegister_RejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(passingHypothesis("H-1", hypothesis.CategoryMap)); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := r.Register(passingHypothesis("H-1", hypothesis.CategoryState))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("failed registration must not grow the catalog, len=%d", r.Len())
	}
}

func TestRegister_RequiresTestFunction(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Hypothesis{ID: "H-NOFN", Name: "no fn"})
	if err == nil {
		t.Fatal("expected error for hypothesis without test function")
	}
}

func TestGetAll_PreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	ids := []string{"H-C", "H-A", "H-B"}
	for _, id := range ids {
		if err := r.Register(passingHypothesis(id, hypothesis.CategoryMap)); err != nil {
			t.Fatal(err)
		}
	}
	all := r.GetAll()
	for i, h := range all {
		if h.ID != ids[i] {
			t.Errorf("position %d: want %s, got %s", i, ids[i], h.ID)
		}
	}
}

func TestGetByCategory(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(passingHypothesis("H-M1", hypothesis.CategoryMap))
	r.MustRegister(passingHypothesis("H-T1", hypothesis.CategoryTime))
	r.MustRegister(passingHypothesis("H-M2", hypothesis.CategoryMap))

	maps := r.GetByCategory(hypothesis.CategoryMap)
	if len(maps) != 2 || maps[0].ID != "H-M1" || maps[1].ID != "H-M2" {
		t.Fatalf("unexpected map category contents: %+v", maps)
	}
	cats := r.Categories()
	if len(cats) != 2 || cats[0] != hypothesis.CategoryMap || cats[1] != hypothesis.CategoryTime {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestDefaultRegistry_UniqueIDsAndCoverage(t *testing.T) {
	r := NewDefaultRegistry()
	if r.Len() == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, want := range []hypothesis.Category{
		hypothesis.CategoryMap,
		hypothesis.CategoryEvent,
		hypothesis.CategoryState,
		hypothesis.CategoryTime,
		hypothesis.CategoryUI,
		hypothesis.CategoryValidation,
		hypothesis.CategorySatellite,
		hypothesis.CategoryList,
	} {
		if len(r.GetByCategory(want)) == 0 {
			t.Errorf("category %s has no hypotheses", want)
		}
	}
	for _, h := range r.GetAll() {
		if h.Statement == "" || h.Prediction == "" {
			t.Errorf("hypothesis %s missing statement or prediction", h.ID)
		}
	}
}

func newLiveContext(t *testing.T) *TestContext {
	t.Helper()
	base := testkit.NewFakeSurface(view.State{Longitude: 10, Latitude: 45, Zoom: 5, Width: 800, Height: 600})
	overlay := testkit.NewFakeSurface(view.State{Zoom: 4, Width: 800, Height: 600})
	frames := testkit.NewManualFrameScheduler()
	clock := testkit.NewFixedClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	logger := internal.NewLoggerWithOutput(internal.LogLevelError, func(string, ...interface{}) {})
	sched := schedule.NewUpdateScheduler(overlay, frames, logger)
	mon := viewsync.NewMonitor(base, overlay, sched, frames, clock, logger, viewsync.MonitorConfig{SampleRate: 0})
	mon.SetRandomSource(func() float64 { return 1 })

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &TestContext{
		Clock:     testkit.NewFakeClockControl(start, start.Add(6*time.Hour)),
		Selection: testkit.NewFakeSelectionStore("sat-25544", "sat-43013"),
		BaseView:  base,
		Overlay:   overlay,
		Scheduler: sched,
		Monitor:   mon,
		Log:       logger,
	}
}

func TestDefaultCatalog_PassesAgainstHealthyFakes(t *testing.T) {
	r := NewDefaultRegistry()
	tc := newLiveContext(t)

	for _, h := range r.GetAll() {
		if _, missing := tc.MissingCapability(h.Requires); missing {
			t.Errorf("%s: capability missing in full context", h.ID)
			continue
		}
		out := h.Run(context.Background(), tc)
		if out.Skipped {
			continue
		}
		if !out.Passed {
			t.Errorf("%s failed against healthy fakes: %+v", h.ID, out.Details)
		}
	}
}

func TestSelectionPersistHypothesis_RestoresState(t *testing.T) {
	r := NewDefaultRegistry()
	tc := newLiveContext(t)
	h, ok := r.Get("STATE-SELECT-PERSIST")
	if !ok {
		t.Fatal("STATE-SELECT-PERSIST not registered")
	}

	id := tc.Selection.Items()[0]
	tc.Selection.SetSelected(id, true)
	out := h.Run(context.Background(), tc)
	if !out.Passed {
		t.Fatalf("hypothesis failed: %+v", out.Details)
	}
	if !tc.Selection.Selected(id) {
		t.Error("test must restore the selection it toggled")
	}
}

func TestMissingCapability_UniformSkip(t *testing.T) {
	tc := &TestContext{} // no collaborators at all
	cap, missing := tc.MissingCapability([]Capability{CapClockControl})
	if !missing || cap != CapClockControl {
		t.Fatalf("expected missing clock capability, got %v/%v", cap, missing)
	}

	out := hypothesis.Skip("clock control unavailable")
	if !out.Skipped || out.Passed {
		t.Fatalf("skip outcome malformed: %+v", out)
	}
}
