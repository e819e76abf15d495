package render

import (
	"image/color"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
)

// Highlight opacities observed in production: a single region draws at full
// strength, several regions at once are dimmed so they do not swamp the page.
const (
	singleFillOpacity = 0.30
	singleLineOpacity = 0.80
	multiFillOpacity  = 0.20
	multiLineOpacity  = 0.60
)

// Painter draws region highlights and selection overlays onto a Surface.
type Painter struct {
	highlight color.NRGBA
	selection color.NRGBA
	lineWidth float64
}

// PainterOption configures a Painter.
type PainterOption func(*Painter)

// WithHighlightColor overrides the base highlight color (alpha is managed by
// the painter).
func WithHighlightColor(c color.NRGBA) PainterOption {
	return func(p *Painter) { p.highlight = c }
}

// WithSelectionColor overrides the live drag-selection color.
func WithSelectionColor(c color.NRGBA) PainterOption {
	return func(p *Painter) { p.selection = c }
}

// WithLineWidth overrides the outline width in device pixels.
func WithLineWidth(w float64) PainterOption {
	return func(p *Painter) { p.lineWidth = w }
}

func NewPainter(opts ...PainterOption) *Painter {
	p := &Painter{
		highlight: color.NRGBA{R: 249, G: 115, B: 22, A: 255},
		selection: color.NRGBA{R: 33, G: 150, B: 243, A: 255},
		lineWidth: 2,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DrawRegions clears the surface and draws every quad in rs at the given
// scale. fade in [0,1] scales the base opacities; pass 1 for the settled
// state. Quads with zeroed trailing corners are normalized before drawing.
func (p *Painter) DrawRegions(s Surface, rs geometry.RegionSet, scale, fade float64) {
	s.Clear()
	if len(rs) == 0 {
		return
	}
	fillOp, lineOp := singleFillOpacity, singleLineOpacity
	if len(rs) > 1 {
		fillOp, lineOp = multiFillOpacity, multiLineOpacity
	}
	_, h := s.Size()
	style := Style{
		Fill:        withOpacity(p.highlight, fillOp*fade),
		Stroke:      withOpacity(p.highlight, lineOp*fade),
		StrokeWidth: p.lineWidth,
	}
	for _, q := range rs {
		pts := coords.QuadToScreen(q.Normalized(), scale, float64(h), s.YDown())
		s.DrawPolygon(pts[:], style)
	}
}

// DrawSelection draws the live drag rectangle above any persisted overlay.
// It does not clear the surface; the selection is ephemeral and the caller
// repaints regions first.
func (p *Painter) DrawSelection(s Surface, q geometry.Quad, scale float64) {
	_, h := s.Size()
	pts := coords.QuadToScreen(q, scale, float64(h), s.YDown())
	s.DrawPolygon(pts[:], Style{
		Fill:        withOpacity(p.selection, 0.15),
		Stroke:      withOpacity(p.selection, 0.9),
		StrokeWidth: p.lineWidth,
	})
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(opacity*255 + 0.5)
	return c
}
