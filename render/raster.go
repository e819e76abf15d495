package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/fieldlens/fieldlens/coords"
)

// Raster is an in-memory Surface backed by an RGBA image. Its vertical axis
// grows downward, like every raster target.
type Raster struct {
	img *image.RGBA
}

// NewRaster allocates a transparent w x h surface.
func NewRaster(w, h int) *Raster {
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image exposes the backing image for encoding or compositing.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Raster) YDown() bool { return true }

func (r *Raster) Clear() {
	draw.Draw(r.img, r.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Fill floods the whole surface with a color. The engine adapter uses it for
// the page ground.
func (r *Raster) Fill(c color.Color) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (r *Raster) DrawPolygon(pts []coords.Point, style Style) {
	if len(pts) < 3 {
		return
	}
	if style.Fill != nil {
		r.fillPath(pts, style.Fill)
	}
	if style.Stroke != nil && style.StrokeWidth > 0 {
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			r.fillPath(strokeQuad(a, b, style.StrokeWidth), style.Stroke)
		}
	}
}

func (r *Raster) fillPath(pts []coords.Point, c color.Color) {
	b := r.img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
	z.Draw(r.img, b, image.NewUniform(c), image.Point{})
}

// strokeQuad widens the segment a-b into a quad of the given width.
func strokeQuad(a, b coords.Point, width float64) []coords.Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		length = 1
	}
	// Unit normal, scaled to half width.
	nx := -dy / length * width / 2
	ny := dx / length * width / 2
	return []coords.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}
