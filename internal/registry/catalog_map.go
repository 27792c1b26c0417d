package registry

import (
	"context"
	"math"

	"viewsync/domain/hypothesis"
	"viewsync/domain/view"
)

// mapCatalog covers base-map/overlay coordinate consistency.
func mapCatalog() []Hypothesis {
	return []Hypothesis{
		{
			ID:             "MAP-ZOOM-OFFSET",
			Name:           "Overlay zoom honors the cross-library offset",
			Category:       hypothesis.CategoryMap,
			Statement:      "The overlay's zoom coordinate space is offset by a constant relative to the base view, so a synced overlay reports baseZoom minus the offset.",
			Symptom:        "Overlay geometry renders at the wrong scale after zooming.",
			Prediction:     "After a forced sync, overlayZoom == baseZoom - offset within tolerance.",
			NullPrediction: "Overlay zoom equals base zoom, or diverges by a varying amount.",
			Threshold:      map[string]float64{"zoomTolerance": 0.01},
			CausalChain: []string{
				"base view reports zoom Z",
				"sync monitor computes expected overlay zoom Z - offset",
				"update scheduler flushes the expected state",
				"overlay reports its actual zoom",
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

				want := base.Zoom - view.OverlayZoomOffset
				diff := math.Abs(actual.Zoom - want)
				details := map[string]interface{}{
					"baseZoom":     base.Zoom,
					"overlayZoom":  actual.Zoom,
					"expectedZoom": want,
					"difference":   diff,
				}
				if diff > 0.01 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "MAP-SYNC-DRIFT",
			Name:           "Drift stays within tolerance under throttled sync",
			Category:       hypothesis.CategoryMap,
			Statement:      "Throttled syncing keeps overlay drift bounded; sampled drift rarely exceeds tolerance.",
			Symptom:        "Overlay entities visibly lag or jump relative to the base map.",
			Prediction:     "The sampled glitch rate stays below 10% of drift probes.",
			NullPrediction: "Glitches accumulate proportionally to sync frequency.",
			Threshold:      map[string]float64{"maxGlitchRate": 0.10},
			CausalChain: []string{
				"move events arrive faster than the throttle interval",
				"deferred syncs coalesce into per-frame flushes",
				"drift probes compare written state against reported state",
			},
			Requires: []Capability{CapMonitor},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				report := tc.Monitor.DriftReport()
				details := map[string]interface{}{
					"samples":  report.Samples,
					"glitches": report.Glitches,
					"maxZoomDrift":      report.MaxZoomDrift,
					"maxLongitudeDrift": report.MaxLongitudeDrift,
				}
				if report.Samples == 0 {
					details["note"] = "no drift probes recorded yet"
					return hypothesis.Pass(details)
				}
				rate := float64(report.Glitches) / float64(report.Samples)
				details["glitchRate"] = rate
				if rate >= 0.10 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "MAP-SIZE-MATCH",
			Name:           "Base and overlay canvases agree on size",
			Category:       hypothesis.CategoryMap,
			Statement:      "Size-fix syncing keeps the overlay canvas within a small pixel tolerance of the base surface.",
			Symptom:        "Overlay picks report wrong coordinates near viewport edges.",
			Prediction:     "Canvas dimensions differ by at most the pixel tolerance.",
			NullPrediction: "Dimensions diverge after window resizes.",
			Threshold:      map[string]float64{"pixelTolerance": 2},
			CausalChain: []string{
				"container resize changes the base surface dimensions",
				"size check detects the mismatch",
				"size-fix update resizes the overlay canvas",
			},
			Requires: []Capability{CapBaseView, CapOverlay, CapMonitor},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				tc.Monitor.CheckCanvasSize()
				bw, bh, err := tc.BaseView.CanvasSize()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				ow, oh, err := tc.Overlay.CanvasSize()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				details := map[string]interface{}{
					"baseWidth": bw, "baseHeight": bh,
					"overlayWidth": ow, "overlayHeight": oh,
				}
				if abs(bw-ow) > 2 || abs(bh-oh) > 2 {
					return hypothesis.Fail(details)
				}
				return hypothesis.Pass(details)
			},
		},
		{
			ID:             "MAP-UPDATE-COALESCE",
			Name:           "Per-frame coalescing absorbs redundant updates",
			Category:       hypothesis.CategoryMap,
			Statement:      "Many partial updates inside one scheduling window collapse into a single surface mutation.",
			Symptom:        "Frame time spikes when many sources mutate view state.",
			Prediction:     "N queued updates in one window produce one flush; the dropped rate approaches (N-1)/N.",
			NullPrediction: "Each queued update reaches the surface individually.",
			Threshold:      map[string]float64{"queuedUpdates": 10},
			CausalChain: []string{
				"multiple sources queue partial updates",
				"scheduler merges them last-write-wins per key",
				"one flush applies the combined state",
			},
			Advisory: true,
			Requires: []Capability{CapOverlay, CapScheduler},
			Run: func(ctx context.Context, tc *TestContext) hypothesis.Outcome {
				st, err := tc.Overlay.State()
				if err != nil {
					return hypothesis.Errored(err.Error())
				}
				before := tc.Scheduler.FlushCount()
				// Queue the overlay's current zoom so the measurement leaves
				// its state untouched.
				const queued = 10
				for i := 0; i < queued; i++ {
					tc.Scheduler.QueueUpdate(map[string]interface{}{view.PropZoom: st.Zoom}, "hypothesis:coalesce")
				}
				tc.Scheduler.FlushNow()
				flushes := tc.Scheduler.FlushCount() - before

				droppedRate := 0.0
				if flushes > 0 {
					droppedRate = float64(queued-int(flushes)) / float64(queued)
				}
				// Advisory: the measurement is the point, not a gate.
				return hypothesis.Pass(map[string]interface{}{
					"queued":      queued,
					"flushes":     flushes,
					"droppedRate": droppedRate,
				})
			},
		},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
