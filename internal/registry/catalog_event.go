package registry

import (
	"context"
	"math"

	"viewsync/domain/hypothesis"
)

// eventCatalog covers move/zoom event handling and throttling.
func eventCatalog() []Hypothesis {
	return []Hypothesis{
		{
			ID:             "EVT-THROTTLE-DEFER",
			Name:           "Rapid move events defer instead of flushing inline",
			Category:       hypothesis.CategoryEvent,
			Statement:      "Move events arriving faster than the throttle interval are deferred to the next frame rather than producing synchronous surface writes.",
			Symptom:        "Continuous panning saturates the overlay with redundant state writes.",
			Prediction:     "A burst of move notifications performs no synchronous flush; pending state accumulates instead.",
			NullPrediction: "Every notification reaches the surface immediately.",
			Threshold:      map[string]float64{"burstEvents": 5, "maxInlineFlushes": 1},
			CausalChain: []string{
				"burst of move events inside one throttle interval",
				"monitor cancels and replaces its deferred sync",
				"scheduler holds the merged update until the frame fires",
			},
			Requires: []Capability{CapMonitor, CapScheduler},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				before := tc.Scheduler.FlushCount()
				const burst = 5
				for i := 0; i < burst; i++ {
					tc.Monitor.OnBaseViewMoved()
				}
				inline := tc.Scheduler.FlushCount() - before
				pending := tc.Scheduler.HasPendingUpdates()
				// Settle: apply whatever the burst queued so later tests see
				// a consistent overlay.
				tc.Scheduler.FlushNow()

				details := map[string]interface{}{
					"burstEvents":   burst,
					"inlineFlushes": inline,
					"hadPending":    pending,
				}
				if inline > 1 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "EVT-MOVE-SYNC",
			Name:           "A move notification propagates base position to the overlay",
			Category:       hypothesis.CategoryEvent,
			Statement:      "Each processed move event rewrites the overlay's position from the base view.",
			Symptom:        "Overlay stays frozen while the base map pans.",
			Prediction:     "After a sync and flush, overlay longitude/latitude equal the base view's.",
			NullPrediction: "Overlay position is independent of base moves.",
			Threshold:      map[string]float64{"positionTolerance": 1e-6},
			CausalChain: []string{
				"base view emits a moved notification",
				"monitor computes the expected overlay state",
				"scheduler flushes it to the overlay",
			},
			Requires: []Capability{CapBaseView, CapOverlay, CapMonitor, CapScheduler},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				base, err := tc.BaseView.State()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				tc.Monitor.OnBaseViewMoved()
				tc.Scheduler.FlushNow()
				actual, err := tc.Overlay.State()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}

				lonDiff := math.Abs(actual.Longitude - base.Longitude)
				latDiff := math.Abs(actual.Latitude - base.Latitude)
				details := map[string]interface{}{
					"longitudeDiff": lonDiff,
					"latitudeDiff":  latDiff,
				}
				if lonDiff > 1e-6 || latDiff > 1e-6 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
	}
}
