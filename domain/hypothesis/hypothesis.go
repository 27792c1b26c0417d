package hypothesis

import (
	"time"
)

// SchemaVersion is the persisted history document version. A loaded document
// with any other version is discarded rather than migrated.
const SchemaVersion = "1.0"

// DefaultMaxRuns caps persisted run history; the oldest runs are pruned.
const DefaultMaxRuns = 50

// Category groups hypotheses by the subsystem they exercise.
type Category string

const (
	CategoryMap        Category = "map"
	CategoryState      Category = "state"
	CategoryEvent      Category = "event"
	CategoryUI         Category = "ui"
	CategoryValidation Category = "validation"
	CategorySatellite  Category = "satellite"
	CategoryTime       Category = "time"
	CategoryList       Category = "list"
)

// Outcome is the result of executing a single hypothesis test.
// Advisory hypotheses always resolve Passed=true but still carry measured
// Details.
type Outcome struct {
	Passed  bool                   `json:"passed"`
	Skipped bool                   `json:"skipped,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Pass builds a passing outcome with optional measured details.
func Pass(details map[string]interface{}) Outcome {
	return Outcome{Passed: true, Details: details}
}

// Fail builds a failing outcome with optional measured details.
func Fail(details map[string]interface{}) Outcome {
	return Outcome{Passed: false, Details: details}
}

// Skip builds a skipped outcome carrying the reason in Details.
func Skip(reason string) Outcome {
	return Outcome{
		Passed:  false,
		Skipped: true,
		Details: map[string]interface{}{"reason": reason},
	}
}

// Errored builds a failed outcome for a test that threw.
func Errored(msg string) Outcome {
	return Outcome{
		Passed:  false,
		Error:   msg,
		Details: map[string]interface{}{"error": msg},
	}
}

// TestResult is the persisted record of one hypothesis execution within a run.
type TestResult struct {
	HypothesisID string                 `json:"hypothesisId"`
	Name         string                 `json:"name"`
	Passed       bool                   `json:"passed"`
	Skipped      bool                   `json:"skipped,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Duration     time.Duration          `json:"duration"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Summary aggregates one run's results. Skipped results are tracked as their
// own bucket; Passed + Failed + Skipped == Total.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summarize computes the summary buckets from an ordered result list.
func Summarize(results []TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Passed:
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// PassRate returns passed/(passed+failed), ignoring skips. Returns 0 when no
// test produced a definite outcome.
func (s Summary) PassRate() float64 {
	definite := s.Passed + s.Failed
	if definite == 0 {
		return 0
	}
	return float64(s.Passed) / float64(definite)
}

// Environment snapshots where a run executed.
type Environment struct {
	Agent      string  `json:"agent"`
	ViewportW  int     `json:"viewportWidth"`
	ViewportH  int     `json:"viewportHeight"`
	PixelRatio float64 `json:"pixelRatio"`
	GoVersion  string  `json:"goVersion,omitempty"`
}

// TestRun is one execution of the suite. It is mutable only between
// StartRun and FinishRun; once finished it is read-only.
type TestRun struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Environment Environment  `json:"environment"`
	Results     []TestResult `json:"results"`
	Summary     Summary      `json:"summary"`
	Duration    time.Duration `json:"duration"`
}

// ResultFor returns the result for a hypothesis id within the run, if present.
func (r *TestRun) ResultFor(hypothesisID string) (TestResult, bool) {
	for _, res := range r.Results {
		if res.HypothesisID == hypothesisID {
			return res, true
		}
	}
	return TestResult{}, false
}

// HistoryDocument is the durable form of run history, newest run first.
type HistoryDocument struct {
	Version string    `json:"version"`
	Runs    []TestRun `json:"runs"`
}

// Regression marks a hypothesis that passed in the previous run and failed in
// the current one. Fail-to-pass transitions are improvements, never recorded
// here.
type Regression struct {
	HypothesisID string `json:"hypothesisId"`
	Name         string `json:"name"`
	Type         string `json:"type"`
}

// RegressionPassToFail is the only regression type.
const RegressionPassToFail = "pass_to_fail"

// TrendPoint is one run's pass ratio for trend analysis. Total counts only
// definite outcomes (passed+failed); skips are excluded.
type TrendPoint struct {
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`
	Passed    int       `json:"passed"`
	Total     int       `json:"total"`
	Rate      float64   `json:"rate"`
}

// HistoryPoint is one run's verdict for a single hypothesis.
type HistoryPoint struct {
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`
	Passed    bool      `json:"passed"`
	Skipped   bool      `json:"skipped,omitempty"`
}

// RunComparison is a per-hypothesis diff between two runs.
type RunComparison struct {
	RunA      string   `json:"runA"`
	RunB      string   `json:"runB"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Improved  []string `json:"improved"`
	Regressed []string `json:"regressed"`
}
