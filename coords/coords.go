// Package coords converts between page-unit space, normalized space and
// device-pixel space.
//
// Convention: a scale factor is device pixels per page unit, with the
// points-per-inch constant already absorbed before zoom is applied
// (scale = zoom * pixelsPerPoint). Every function takes the scale
// explicitly; nothing here caches viewport state, so draw passes can call
// concurrently without staleness.
package coords

import (
	"errors"
	"math"

	"github.com/fieldlens/fieldlens/geometry"
)

// PointsPerInch is the page-unit density of PDF user space.
const PointsPerInch = 72.0

// Point is a location in whichever space the caller is working in.
type Point struct{ X, Y float64 }

// Matrix is a 2D affine transform in the usual [a b c d e f] layout.
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Multiply returns m then o applied in sequence.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// ToScreen maps a page-unit point to device pixels.
func ToScreen(p Point, scale float64) Point {
	return Point{X: p.X * scale, Y: p.Y * scale}
}

// ToPage is the exact inverse of ToScreen for scale > 0.
func ToPage(p Point, scale float64) Point {
	return Point{X: p.X / scale, Y: p.Y / scale}
}

// FlipY maps a bottom-up page-unit vertical coordinate onto a surface whose
// vertical axis grows downward.
func FlipY(value, canvasHeight, scale float64) float64 {
	return canvasHeight - value*scale
}

// QuadPoints returns the quad's corners in drawing order.
func QuadPoints(q geometry.Quad) [4]Point {
	return [4]Point{
		{q.X1, q.Y1},
		{q.X2, q.Y2},
		{q.X3, q.Y3},
		{q.X4, q.Y4},
	}
}

// QuadToScreen maps a quad's corners to device pixels, flipping the vertical
// axis when yDown is set. canvasHeight is in device pixels.
func QuadToScreen(q geometry.Quad, scale, canvasHeight float64, yDown bool) [4]Point {
	pts := QuadPoints(q)
	for i, p := range pts {
		pts[i] = ToScreen(p, scale)
		if yDown {
			pts[i].Y = FlipY(p.Y, canvasHeight, scale)
		}
	}
	return pts
}
