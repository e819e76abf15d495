// Package textregion returns the text enclosed by a quadrilateral region of
// a page's text layer, assembled in reading order.
package textregion

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/observability"
	"github.com/fieldlens/fieldlens/ocr"
)

// DefaultLineTolerance is the vertical distance, in text-space units, within
// which two items are considered part of the same line.
const DefaultLineTolerance = 5.0

// Item is one positioned run of text in the page's text layer, in text-space
// coordinates.
type Item struct {
	Text   string
	X, Y   float64
	Width  float64
	Height float64
}

// ImagerFunc renders the given quad to an encoded image (PNG) at the given
// DPI, for engines that read pixels instead of a text layer.
type ImagerFunc func(ctx context.Context, q geometry.Quad, dpi int) ([]byte, error)

// Extractor filters, orders and concatenates text items inside a region.
// The zero value is not usable; call New.
type Extractor struct {
	tol    float64
	log    observability.Logger
	engine ocr.Engine
	imager ImagerFunc
	dpi    int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLineTolerance overrides the same-line vertical tolerance.
func WithLineTolerance(tol float64) Option {
	return func(e *Extractor) { e.tol = tol }
}

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithOCRFallback enables pixel-based recognition for pages whose text layer
// yields nothing inside the region. imager renders the region; dpi <= 0
// defaults to 150.
func WithOCRFallback(engine ocr.Engine, imager ImagerFunc, dpi int) Option {
	return func(e *Extractor) {
		e.engine = engine
		e.imager = imager
		if dpi <= 0 {
			dpi = 150
		}
		e.dpi = dpi
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{tol: DefaultLineTolerance, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text inside q in reading order. toText maps page units
// into the text layer's coordinate space. An empty result is an empty
// string, never an error: a region with no text simply has no text.
func (e *Extractor) Extract(q geometry.Quad, toText coords.Matrix, items []Item) string {
	minX, minY, maxX, maxY := targetBox(q, toText)

	var hits []Item
	for _, it := range items {
		if it.X+it.Width >= minX && it.X <= maxX && it.Y >= minY && it.Y <= maxY {
			hits = append(hits, it)
		}
	}
	if len(hits) == 0 {
		return ""
	}

	lines := groupLines(hits, e.tol)

	var b strings.Builder
	for li, line := range lines {
		if li > 0 {
			b.WriteByte('\n')
		}
		for wi, it := range line {
			if wi > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(it.Text)
		}
	}
	return norm.NFC.String(strings.TrimSpace(b.String()))
}

// ExtractContext is Extract with the OCR fallback: when the text layer has
// no items inside the region and a fallback engine is configured, the region
// is rendered to pixels and recognized instead.
func (e *Extractor) ExtractContext(ctx context.Context, q geometry.Quad, toText coords.Matrix, items []Item) (string, error) {
	if text := e.Extract(q, toText, items); text != "" {
		return text, nil
	}
	if e.engine == nil || e.imager == nil {
		return "", nil
	}
	img, err := e.imager(ctx, q, e.dpi)
	if err != nil {
		return "", fmt.Errorf("render region for ocr: %w", err)
	}
	res, err := e.engine.Recognize(ctx, ocr.Input{Image: img, DPI: e.dpi})
	if err != nil {
		return "", fmt.Errorf("ocr fallback (%s): %w", e.engine.Name(), err)
	}
	e.log.Debug("ocr fallback used",
		observability.Int("page", q.Page),
		observability.String("engine", e.engine.Name()))
	return norm.NFC.String(res.PlainText), nil
}

// targetBox computes the axis-aligned target box in text space from the
// first and third corners. The stored shape is assumed approximately
// axis-aligned even though four independent corners exist.
func targetBox(q geometry.Quad, toText coords.Matrix) (minX, minY, maxX, maxY float64) {
	a := toText.Transform(coords.Point{X: q.X1, Y: q.Y1})
	b := toText.Transform(coords.Point{X: q.X3, Y: q.Y3})
	minX, maxX = math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY = math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return
}

// groupLines orders items top-to-bottom into lines, left-to-right within a
// line. A new line starts when the vertical gap from the line's first item
// exceeds tol.
func groupLines(items []Item, tol float64) [][]Item {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Y < items[j].Y })

	var lines [][]Item
	anchor := math.Inf(-1)
	for _, it := range items {
		if len(lines) == 0 || math.Abs(it.Y-anchor) > tol {
			lines = append(lines, []Item{it})
			anchor = it.Y
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], it)
	}
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
	}
	return lines
}
