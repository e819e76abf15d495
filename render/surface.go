// Package render defines the drawable-surface boundary consumed by the
// viewer and the highlight painter that draws region overlays onto it.
//
// A viewer owns two overlapping surfaces: one for base page content (painted
// by the document engine) and one for annotation overlays (painted here).
// Overlay drawing always happens after base-page drawing completes, never
// concurrently with it, so the engine's clear step cannot erase highlights.
package render

import (
	"image/color"

	"github.com/fieldlens/fieldlens/coords"
)

// Style controls how a polygon is filled and outlined.
type Style struct {
	Fill        color.Color
	Stroke      color.Color
	StrokeWidth float64
}

// Surface is a drawable target in device-pixel space.
type Surface interface {
	// Clear resets the surface to fully transparent.
	Clear()
	// DrawPolygon fills and strokes the closed polygon through pts.
	DrawPolygon(pts []coords.Point, style Style)
	// Size returns the surface dimensions in device pixels.
	Size() (w, h int)
	// YDown reports whether the surface's vertical axis grows downward.
	// Page space is bottom-up; callers flip when this is true.
	YDown() bool
}

// Recorder is a Surface that records operations for assertions in tests.
type Recorder struct {
	W, H     int
	Down     bool
	Clears   int
	Polygons [][]coords.Point
	Styles   []Style
}

func (r *Recorder) Clear() {
	r.Clears++
	r.Polygons = nil
	r.Styles = nil
}

func (r *Recorder) DrawPolygon(pts []coords.Point, style Style) {
	cp := make([]coords.Point, len(pts))
	copy(cp, pts)
	r.Polygons = append(r.Polygons, cp)
	r.Styles = append(r.Styles, style)
}

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) YDown() bool { return r.Down }
