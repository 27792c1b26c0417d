package registry

import (
	"context"
	"time"

	"viewsync/domain/hypothesis"
)

// timeCatalog covers the simulation clock and satellite entity state.
func timeCatalog() []Hypothesis {
	return []Hypothesis{
		{
			ID:             "TIME-FOLLOW-SUSPEND",
			Name:           "Real-time follow mode can be suspended",
			Category:       hypothesis.CategoryTime,
			Statement:      "Suspending clock-follow mode stops the displayed time from tracking the wall clock.",
			Symptom:        "Scrubbing the timeline fights with the real-time updater.",
			Prediction:     "After SetFollowRealTime(false), the control reports follow off.",
			NullPrediction: "Follow mode re-enables itself.",
			CausalChain: []string{
				"suspend follow mode",
				"read the flag back",
				"restore the original mode",
			},
			Requires: []Capability{CapClockControl},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				orig := tc.Clock.FollowRealTime()
				tc.Clock.SetFollowRealTime(false)
				suspended := !tc.Clock.FollowRealTime()
				tc.Clock.SetFollowRealTime(orig)

				details := map[string]interface{}{"suspended": suspended}
				if !suspended {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "TIME-WINDOW-WIDEN",
			Name:           "Widened time bounds lift clamping",
			Category:       hypothesis.CategoryTime,
			Statement:      "The current time is clamped to the active window; widening the window lets the time advance past the old bound.",
			Symptom:        "Stepping the clock sticks at the window edge.",
			Prediction:     "With the end bound moved a day out, a time one hour past the old bound is accepted unclamped.",
			NullPrediction: "The old bound keeps clamping after the widen.",
			CausalChain: []string{
				"snapshot bounds and current time",
				"widen the end bound",
				"set a time past the old bound",
				"verify it was not clamped",
				"restore everything",
			},
			Requires: []Capability{CapClockControl},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				origStart, origEnd := tc.Clock.TimeBounds()
				origCurrent := tc.Clock.CurrentTime()

				tc.Clock.SetTimeBounds(origStart, origEnd.Add(24*time.Hour))
				target := origEnd.Add(time.Hour)
				tc.Clock.SetCurrentTime(target)
				got := tc.Clock.CurrentTime()

				tc.Clock.SetTimeBounds(origStart, origEnd)
				tc.Clock.SetCurrentTime(origCurrent)

				details := map[string]interface{}{
					"target": target.Format(time.RFC3339),
					"got":    got.Format(time.RFC3339),
				}
				if !got.Equal(target) {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "SAT-SELECTION-COUNT",
			Name:           "Satellite selection census",
			Category:       hypothesis.CategorySatellite,
			Statement:      "The selection store exposes the tracked satellite population and how much of it is selected.",
			Symptom:        "None; informational metric for suite reports.",
			Prediction:     "Counts are reported; no gate applies.",
			NullPrediction: "n/a",
			CausalChain: []string{
				"enumerate entities",
				"count selected flags",
			},
			Advisory: true,
			Requires: []Capability{CapSelection},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				items := tc.Selection.Items()
				selected := 0
				for _, id := range items {
					if tc.Selection.Selected(id) {
						selected++
					}
				}
				return hypothesis.Pass(map[string]interface{}{
					"entities": len(items),
					"selected": selected,
				})
			},
		},
	}
}
