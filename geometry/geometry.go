// Package geometry holds the page-relative quadrilateral model used to mark
// where a field's value appears on a source page, together with the canonical
// D(page,x1,y1,...,x4,y4) string encoding.
//
// Coordinates are in page units (typographic points, origin bottom-left) and
// pages are 1-based. Corners are stored in a consistent winding order so that
// edge drawing and center computation are deterministic; nothing enforces
// convexity, and degenerate shapes must be accepted.
package geometry

import "math"

// Quad is one quadrilateral region on a single page.
type Quad struct {
	Page                           int
	X1, Y1, X2, Y2, X3, Y3, X4, Y4 float64
}

// RegionSet is the ordered regions of one logical field. Order is display
// order only; a value spanning disjoint areas has one entry per area.
type RegionSet []Quad

// Center returns the average of the four corners.
func (q Quad) Center() (x, y float64) {
	return (q.X1 + q.X2 + q.X3 + q.X4) / 4, (q.Y1 + q.Y2 + q.Y3 + q.Y4) / 4
}

// Bounds returns the axis-aligned bounding box of the quad.
func (q Quad) Bounds() (minX, minY, maxX, maxY float64) {
	minX = math.Min(math.Min(q.X1, q.X2), math.Min(q.X3, q.X4))
	maxX = math.Max(math.Max(q.X1, q.X2), math.Max(q.X3, q.X4))
	minY = math.Min(math.Min(q.Y1, q.Y2), math.Min(q.Y3, q.Y4))
	maxY = math.Max(math.Max(q.Y1, q.Y2), math.Max(q.Y3, q.Y4))
	return
}

// Normalized returns the quad with missing third and fourth corners filled
// in from the second and first. Some producers emit only two corner pairs
// and leave the rest zeroed; borrowing keeps those rectangles drawable.
func (q Quad) Normalized() Quad {
	if q.X3 == 0 && q.Y3 == 0 {
		q.X3, q.Y3 = q.X2, q.Y2
	}
	if q.X4 == 0 && q.Y4 == 0 {
		q.X4, q.Y4 = q.X1, q.Y1
	}
	return q
}

// FromRect builds a quad from two opposite corners, ordered
// (minX,minY)-(maxX,minY)-(maxX,maxY)-(minX,maxY).
func FromRect(page int, ax, ay, bx, by float64) Quad {
	minX, maxX := math.Min(ax, bx), math.Max(ax, bx)
	minY, maxY := math.Min(ay, by), math.Max(ay, by)
	return Quad{
		Page: page,
		X1:   minX, Y1: minY,
		X2: maxX, Y2: minY,
		X3: maxX, Y3: maxY,
		X4: minX, Y4: maxY,
	}
}

// OnPage filters rs down to the quads whose page equals page, preserving
// order.
func (rs RegionSet) OnPage(page int) RegionSet {
	var out RegionSet
	for _, q := range rs {
		if q.Page == page {
			out = append(out, q)
		}
	}
	return out
}

// Pages returns the distinct page numbers touched by rs, in first-seen order.
func (rs RegionSet) Pages() []int {
	seen := make(map[int]bool, len(rs))
	var pages []int
	for _, q := range rs {
		if !seen[q.Page] {
			seen[q.Page] = true
			pages = append(pages, q.Page)
		}
	}
	return pages
}
