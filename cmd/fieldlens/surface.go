package main

import (
	"image/color"
	"math"
	"sync"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/render"
)

// cellSurface is a render.Surface over a terminal cell grid: one device
// pixel per character cell. Polygons are rasterized as filled bounding boxes
// with stroked borders, which is as much geometry as a cell grid can carry.
type cellSurface struct {
	mu    sync.Mutex
	w, h  int
	cells []color.NRGBA
}

func newCellSurface(w, h int) *cellSurface {
	s := &cellSurface{}
	s.Resize(w, h)
	return s
}

// Resize reallocates the grid, discarding content.
func (s *cellSurface) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	s.mu.Lock()
	s.w, s.h = w, h
	s.cells = make([]color.NRGBA, w*h)
	s.mu.Unlock()
}

func (s *cellSurface) Clear() {
	s.mu.Lock()
	for i := range s.cells {
		s.cells[i] = color.NRGBA{}
	}
	s.mu.Unlock()
}

func (s *cellSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *cellSurface) YDown() bool { return true }

func (s *cellSurface) DrawPolygon(pts []coords.Point, style render.Style) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	x0, y0 := clampCell(minX, s.w), clampCell(minY, s.h)
	x1, y1 := clampCell(maxX-1, s.w), clampCell(maxY-1, s.h)
	fill := toNRGBA(style.Fill)
	stroke := toNRGBA(style.Stroke)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c := fill
			if y == y0 || y == y1 || x == x0 || x == x1 {
				if stroke.A > 0 {
					c = stroke
				}
			}
			if c.A > 0 {
				s.cells[y*s.w+x] = c
			}
		}
	}
}

// At returns the cell color at (x, y); transparent cells report ok false.
func (s *cellSurface) At(x, y int) (color.NRGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return color.NRGBA{}, false
	}
	c := s.cells[y*s.w+x]
	return c, c.A > 0
}

func clampCell(v float64, limit int) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= limit {
		return limit - 1
	}
	return i
}

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	if n, ok := c.(color.NRGBA); ok {
		return n
	}
	r, g, b, a := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
