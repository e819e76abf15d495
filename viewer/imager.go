package viewer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/render"
	"github.com/fieldlens/fieldlens/textregion"
)

// RegionImager adapts a DocumentEngine into the imager the text extractor's
// recognition fallback needs: the region's page is rasterized at the
// requested dpi (page units are points, 72 per inch) and the quad's bounding
// box is returned PNG-encoded. url supplies the document to image, typically
// the pipeline's current URL.
func RegionImager(engine DocumentEngine, url func() string) textregion.ImagerFunc {
	return func(ctx context.Context, q geometry.Quad, dpi int) ([]byte, error) {
		doc, err := engine.LoadDocument(ctx, url())
		if err != nil {
			return nil, fmt.Errorf("load for region image: %w", err)
		}
		ph, err := doc.Page(ctx, q.Page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", q.Page, err)
		}
		w, h := ph.Size()
		scale := float64(dpi) / 72
		raster := render.NewRaster(int(math.Ceil(w*scale)), int(math.Ceil(h*scale)))
		if err := ph.Render(raster, scale).Wait(); err != nil {
			return nil, fmt.Errorf("render page %d: %w", q.Page, err)
		}
		// Page space is bottom-up; the raster's is not.
		minX, minY, maxX, maxY := q.Normalized().Bounds()
		rect := image.Rect(
			int(math.Floor(minX*scale)),
			int(math.Floor((h-maxY)*scale)),
			int(math.Ceil(maxX*scale)),
			int(math.Ceil((h-minY)*scale)),
		).Intersect(raster.Image().Bounds())
		if rect.Empty() {
			return nil, fmt.Errorf("region outside page %d bounds", q.Page)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, raster.Image().SubImage(rect)); err != nil {
			return nil, fmt.Errorf("encode region: %w", err)
		}
		return buf.Bytes(), nil
	}
}
