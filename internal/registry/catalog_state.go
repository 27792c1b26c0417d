package registry

import (
	"context"

	"viewsync/domain/hypothesis"
	"viewsync/domain/view"
)

// stateCatalog covers entity selection, list and UI state.
func stateCatalog() []Hypothesis {
	return []Hypothesis{
		{
			ID:             "STATE-SELECT-PERSIST",
			Name:           "Selection toggles persist in the store",
			Category:       hypothesis.CategoryState,
			Statement:      "Toggling an entity's selection writes through to the selection store, not just the UI layer.",
			Symptom:        "Selections vanish after a panel refresh.",
			Prediction:     "A toggled selection reads back in its new state.",
			NullPrediction: "Reads return the pre-toggle state.",
			CausalChain: []string{
				"test toggles the first entity's selection",
				"store persists the new flag",
				"read-back confirms it",
				"test restores the original flag",
			},
			Requires: []Capability{CapSelection},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				items := tc.Selection.Items()
				if len(items) == 0 {
					return hypothesis.Skip("selection store has no entities")
				}
				id := items[0]
				orig := tc.Selection.Selected(id)

				tc.Selection.SetSelected(id, !orig)
				persisted := tc.Selection.Selected(id) == !orig
				// Restore before reporting, whatever the outcome.
				tc.Selection.SetSelected(id, orig)

				details := map[string]interface{}{"entity": id, "persisted": persisted}
				if !persisted {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "LIST-ORDER-STABLE",
			Name:           "Entity list order is stable across reads",
			Category:       hypothesis.CategoryList,
			Statement:      "The entity list is returned in a stable order, so table rows do not shuffle between renders.",
			Symptom:        "Rows jump around on every panel refresh.",
			Prediction:     "Two consecutive reads return identical sequences.",
			NullPrediction: "Order varies between reads.",
			CausalChain: []string{
				"first read captures the sequence",
				"second read must match element for element",
			},
			Requires: []Capability{CapSelection},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				first := tc.Selection.Items()
				second := tc.Selection.Items()
				details := map[string]interface{}{"count": len(first)}
				if len(first) != len(second) {
					return hypothesis.Fail(details)
				}
				for i := range first {
					if first[i] != second[i] {
						details["divergesAt"] = i
						return hypothesis.Fail(details)
					}
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "UI-VIEWPORT-SANE",
			Name:           "Viewport reports positive dimensions",
			Category:       hypothesis.CategoryUI,
			Statement:      "The base surface always reports a non-degenerate viewport once initialized.",
			Symptom:        "Layout math divides by zero on startup.",
			Prediction:     "Canvas width and height are both positive.",
			NullPrediction: "Zero-sized viewports appear transiently.",
			Threshold:      map[string]float64{"minWidth": 1, "minHeight": 1},
			CausalChain: []string{
				"surface initialization sets canvas dimensions",
				"query returns the live values",
			},
			Requires: []Capability{CapBaseView},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				w, h, err := tc.BaseView.CanvasSize()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				details := map[string]interface{}{"width": w, "height": h}
				if w < 1 || h < 1 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "VAL-PENDING-FLUSH",
			Name:           "FlushNow leaves no pending state behind",
			Category:       hypothesis.CategoryValidation,
			Statement:      "An immediate flush drains the pending update set completely.",
			Symptom:        "Stale queued properties apply one frame late.",
			Prediction:     "After QueueUpdate then FlushNow, HasPendingUpdates is false.",
			NullPrediction: "Pending state survives an immediate flush.",
			CausalChain: []string{
				"queue a no-op update",
				"flush immediately",
				"verify the pending set is empty",
			},
			Requires: []Capability{CapOverlay, CapScheduler},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				st, err := tc.Overlay.State()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				tc.Scheduler.QueueUpdate(map[string]interface{}{view.PropZoom: st.Zoom}, "hypothesis:flush-check")
				queued := tc.Scheduler.HasPendingUpdates()
				tc.Scheduler.FlushNow()
				drained := !tc.Scheduler.HasPendingUpdates()

				details := map[string]interface{}{"queued": queued, "drained": drained}
				if !queued || !drained {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
	}
}
