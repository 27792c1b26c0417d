package results

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"viewsync/domain/hypothesis"
)

// PassRateTrend returns the last n runs' pass ratios, newest first. A trend
// point counts only definite outcomes; skipped results are excluded from its
// total.
func (s *Store) PassRateTrend(n int) []hypothesis.TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]hypothesis.TrendPoint, 0, n)
	for _, run := range s.history[:n] {
		definite := run.Summary.Passed + run.Summary.Failed
		out = append(out, hypothesis.TrendPoint{
			RunID:     run.ID,
			Timestamp: run.Timestamp,
			Passed:    run.Summary.Passed,
			Total:     definite,
			Rate:      run.Summary.PassRate(),
		})
	}
	return out
}

// TrendSlope fits a least-squares line through the last n runs' pass rates in
// chronological order and returns its slope. Positive means the suite is
// improving. Returns 0 with fewer than two runs.
func (s *Store) TrendSlope(n int) float64 {
	points := s.PassRateTrend(n)
	if len(points) < 2 {
		return 0
	}

	// Oldest first for the regression.
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i := range points {
		p := points[len(points)-1-i]
		xs[i] = float64(i)
		ys[i] = p.Rate
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

// TestHistory returns one hypothesis's verdicts across the last n runs,
// newest first. Runs that did not execute the hypothesis are omitted.
func (s *Store) TestHistory(hypothesisID string, n int) []hypothesis.HistoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	var out []hypothesis.HistoryPoint
	for _, run := range s.history[:n] {
		res, ok := run.ResultFor(hypothesisID)
		if !ok {
			continue
		}
		out = append(out, hypothesis.HistoryPoint{
			RunID:     run.ID,
			Timestamp: run.Timestamp,
			Passed:    res.Passed,
			Skipped:   res.Skipped,
		})
	}
	return out
}

// CompareRuns diffs two finished runs per hypothesis id: hypotheses added or
// removed between them, and definite fail-to-pass (improved) or pass-to-fail
// (regressed) transitions from run A to run B.
func (s *Store) CompareRuns(idA, idB string) (*hypothesis.RunComparison, bool) {
	runA, okA := s.RunByID(idA)
	runB, okB := s.RunByID(idB)
	if !okA || !okB {
		return nil, false
	}

	cmp := &hypothesis.RunComparison{RunA: idA, RunB: idB}
	inA := map[string]hypothesis.TestResult{}
	for _, r := range runA.Results {
		inA[r.HypothesisID] = r
	}

	for _, b := range runB.Results {
		a, shared := inA[b.HypothesisID]
		if !shared {
			cmp.Added = append(cmp.Added, b.HypothesisID)
			continue
		}
		delete(inA, b.HypothesisID)
		if a.Skipped || b.Skipped {
			continue
		}
		switch {
		case !a.Passed && b.Passed:
			cmp.Improved = append(cmp.Improved, b.HypothesisID)
		case a.Passed && !b.Passed:
			cmp.Regressed = append(cmp.Regressed, b.HypothesisID)
		}
	}
	for id := range inA {
		cmp.Removed = append(cmp.Removed, id)
	}
	sort.Strings(cmp.Removed)
	return cmp, true
}
