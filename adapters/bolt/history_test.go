package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"viewsync/domain/hypothesis"
)

func openRepo(t *testing.T) *HistoryRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoad_EmptyDatabase(t *testing.T) {
	repo := openRepo(t)
	doc, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc != nil {
		t.Fatalf("fresh database must load nil, got %+v", doc)
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	in := &hypothesis.HistoryDocument{
		Version: hypothesis.SchemaVersion,
		Runs: []hypothesis.TestRun{
			{
				ID:        "run-1",
				Timestamp: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
				Duration:  2 * time.Second,
				Results: []hypothesis.TestResult{
					{HypothesisID: "MAP-ZOOM-OFFSET", Name: "overlay zoom offset", Passed: true},
					{HypothesisID: "EVT-MOVE-SYNC", Name: "move sync", Passed: false},
				},
				Summary: hypothesis.Summary{Total: 2, Passed: 1, Failed: 1},
			},
		},
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil || out.Version != in.Version || len(out.Runs) != 1 {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}
	run := out.Runs[0]
	if run.ID != "run-1" || run.Summary.Passed != 1 || len(run.Results) != 2 {
		t.Errorf("run did not survive roundtrip: %+v", run)
	}
	if !run.Timestamp.Equal(in.Runs[0].Timestamp) {
		t.Errorf("timestamp: want %s, got %s", in.Runs[0].Timestamp, run.Timestamp)
	}
}

func TestSave_Replaces(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	first := &hypothesis.HistoryDocument{Version: hypothesis.SchemaVersion,
		Runs: []hypothesis.TestRun{{ID: "old"}}}
	second := &hypothesis.HistoryDocument{Version: hypothesis.SchemaVersion,
		Runs: []hypothesis.TestRun{{ID: "new-a"}, {ID: "new-b"}}}

	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Runs) != 2 || out.Runs[0].ID != "new-a" {
		t.Fatalf("save must replace the document, got %+v", out.Runs)
	}
}

func TestCanceledContext(t *testing.T) {
	repo := openRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.Load(ctx); err == nil {
		t.Error("load with canceled context should fail")
	}
	doc := &hypothesis.HistoryDocument{Version: hypothesis.SchemaVersion}
	if err := repo.Save(ctx, doc); err == nil {
		t.Error("save with canceled context should fail")
	}
}
