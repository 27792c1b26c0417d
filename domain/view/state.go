package view

import (
	"time"
)

// OverlayZoomOffset is the constant difference between the base map's zoom
// coordinate space and the overlay's. The overlay library counts zoom levels
// one lower than the base renderer for the same visible extent, so every
// state written to the overlay uses overlayZoom = baseZoom - OverlayZoomOffset.
// This constant is shared by initialization, move/zoom sync and resize; the
// offset must never be re-derived or inlined at a call site.
const OverlayZoomOffset = 1.0

// Property names used in partial state updates.
const (
	PropLongitude = "longitude"
	PropLatitude  = "latitude"
	PropZoom      = "zoom"
	PropPitch     = "pitch"
	PropBearing   = "bearing"
	PropWidth     = "width"
	PropHeight    = "height"
)

// State is the full view state of a rendering surface.
type State struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// PropertyCategory classifies which aspect of a view a property belongs to.
type PropertyCategory string

const (
	CategoryPosition PropertyCategory = "position"
	CategoryGeometry PropertyCategory = "geometry"
	CategorySize     PropertyCategory = "size"
)

// CategoryOf returns the category for a property name, or "" for unknown keys.
func CategoryOf(prop string) PropertyCategory {
	switch prop {
	case PropLongitude, PropLatitude, PropPitch, PropBearing:
		return CategoryPosition
	case PropZoom:
		return CategoryGeometry
	case PropWidth, PropHeight:
		return CategorySize
	}
	return ""
}

// CategoriesOf returns the distinct categories covered by a set of property
// keys, in a stable order (position, geometry, size).
func CategoriesOf(props map[string]interface{}) []PropertyCategory {
	seen := map[PropertyCategory]bool{}
	for k := range props {
		if c := CategoryOf(k); c != "" {
			seen[c] = true
		}
	}
	var out []PropertyCategory
	for _, c := range []PropertyCategory{CategoryPosition, CategoryGeometry, CategorySize} {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Tolerances bound how far the overlay's reported state may drift from the
// value most recently written to it before a sample counts as a glitch.
type Tolerances struct {
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Zoom      float64 `yaml:"zoom" json:"zoom"`
}

// DefaultTolerances returns the nominal drift tolerances: one micro-degree of
// position and a hundredth of a zoom level.
func DefaultTolerances() Tolerances {
	return Tolerances{Longitude: 1e-6, Latitude: 1e-6, Zoom: 0.01}
}

// DriftSample records the discrepancy between an overlay's actual reported
// state and the expected state most recently written to it.
type DriftSample struct {
	LongitudeDrift float64   `json:"longitudeDrift"`
	LatitudeDrift  float64   `json:"latitudeDrift"`
	ZoomDrift      float64   `json:"zoomDrift"`
	Timestamp      time.Time `json:"timestamp"`
}

// WithinTolerance reports whether every drift component is inside the
// configured bounds.
func (d DriftSample) WithinTolerance(tol Tolerances) bool {
	return abs(d.LongitudeDrift) <= tol.Longitude &&
		abs(d.LatitudeDrift) <= tol.Latitude &&
		abs(d.ZoomDrift) <= tol.Zoom
}

// GlitchEvent is a drift sample that exceeded tolerance.
type GlitchEvent struct {
	ID        string      `json:"id"`
	Sample    DriftSample `json:"sample"`
	Timestamp time.Time   `json:"timestamp"`
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
