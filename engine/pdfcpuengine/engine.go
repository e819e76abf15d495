// Package pdfcpuengine adapts pdfcpu as a viewer.DocumentEngine. It reads
// document structure (page count, page dimensions) with pdfcpu and paints a
// page ground onto the base surface; content-accurate rasterization and text
// layers belong to an external renderer, with OCR covering extraction.
package pdfcpuengine

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/observability"
	"github.com/fieldlens/fieldlens/render"
	"github.com/fieldlens/fieldlens/textregion"
	"github.com/fieldlens/fieldlens/viewer"
)

// Engine loads documents over http(s) or from the filesystem.
type Engine struct {
	client *http.Client
	conf   *model.Configuration
	log    observability.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient overrides the fetch client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		client: &http.Client{Timeout: 30 * time.Second},
		conf:   model.NewDefaultConfiguration(),
		log:    observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadDocument fetches and parses the document at url.
func (e *Engine) LoadDocument(ctx context.Context, url string) (viewer.Document, error) {
	data, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	rs := bytes.NewReader(data)
	count, err := api.PageCount(rs, e.conf)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	dims, err := api.PageDims(rs, e.conf)
	if err != nil {
		return nil, fmt.Errorf("page dimensions: %w", err)
	}

	doc := &document{count: count, fp: viewer.Fingerprint(data)}
	doc.pages = make([]page, count)
	for i := range doc.pages {
		// US Letter fallback when a page carries no dimensions.
		w, h := 612.0, 792.0
		if i < len(dims) {
			w, h = dims[i].Width, dims[i].Height
		}
		doc.pages[i] = page{n: i + 1, w: w, h: h}
	}
	e.log.Info("document parsed",
		observability.String("url", url),
		observability.Int("pages", count))
	return doc, nil
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %s", url, resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		path := strings.TrimPrefix(url, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
}

type document struct {
	count int
	fp    string
	pages []page
}

func (d *document) PageCount() int      { return d.count }
func (d *document) Fingerprint() string { return d.fp }

func (d *document) Page(_ context.Context, n int) (viewer.PageHandle, error) {
	if n < 1 || n > d.count {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, d.count)
	}
	return &d.pages[n-1], nil
}

type page struct {
	n    int
	w, h float64
}

func (p *page) Size() (float64, float64) { return p.w, p.h }

var (
	sheetFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	sheetStroke = color.NRGBA{R: 203, G: 213, B: 225, A: 255}
)

// Render paints the page ground: a white sheet with a light outline sized to
// the page at the given scale.
func (p *page) Render(surface render.Surface, scale float64) viewer.CancellableTask {
	t := newTask()
	go func() {
		select {
		case <-t.cancelled:
			t.finish(viewer.ErrCancelled)
			return
		default:
		}
		w, h := p.w*scale, p.h*scale
		surface.Clear()
		surface.DrawPolygon([]coords.Point{
			{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
		}, render.Style{Fill: sheetFill, Stroke: sheetStroke, StrokeWidth: 1})
		t.finish(nil)
	}()
	return t
}

// TextContent returns no items: pdfcpu exposes structure, not a positioned
// text layer. Region extraction falls back to OCR.
func (p *page) TextContent(context.Context) ([]textregion.Item, error) {
	return nil, nil
}

type task struct {
	once      sync.Once
	cancel    sync.Once
	cancelled chan struct{}
	done      chan struct{}
	err       error
}

func newTask() *task {
	return &task{cancelled: make(chan struct{}), done: make(chan struct{})}
}

func (t *task) Cancel() {
	t.cancel.Do(func() { close(t.cancelled) })
}

func (t *task) Wait() error {
	<-t.done
	return t.err
}

func (t *task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}
