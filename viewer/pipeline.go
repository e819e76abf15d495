// Package viewer owns the page-render lifecycle for one viewer instance:
// load a document, render page N, cancel an in-flight render when a newer
// request supersedes it, and coalesce bursts of requests into at most one
// pending render. Highlights are drawn onto a separate overlay surface
// strictly after the base page paint completes.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/observability"
	"github.com/fieldlens/fieldlens/render"
	"github.com/fieldlens/fieldlens/textregion"
)

// DefaultPadding is the horizontal margin, in device pixels, reserved when
// resolving a fit-width scale.
const DefaultPadding = 40

// ViewportState is a read snapshot of the pipeline's viewport. Collaborators
// receive copies, never references; transitions go through the pipeline API.
type ViewportState struct {
	URL         string
	Fingerprint string
	Page        int
	PageCount   int
	Scale       float64
	Mode        coords.ZoomMode
	Rendering   bool
}

// Loaded reports whether a document is open.
func (s ViewportState) Loaded() bool { return s.PageCount > 0 }

// Pipeline coordinates an asynchronous DocumentEngine for one viewer. All
// methods are safe for concurrent use; internally requests are totally
// ordered and a monotonically increasing generation discards completions
// that arrive after their render was superseded.
type Pipeline struct {
	engine    DocumentEngine
	base      render.Surface
	overlay   render.Surface
	painter   *render.Painter
	extractor *textregion.Extractor
	clamp     coords.Clamp
	padding   float64
	fade      render.Fade
	clock     render.Clock
	tickers   render.TickerFactory
	log       observability.Logger
	tracer    observability.Tracer
	onError   func(*Error)

	mu           sync.Mutex
	doc          Document
	url          string
	fingerprint  string
	page         int
	lastRendered int
	pageCount    int
	mode         coords.ZoomMode
	explicit     float64
	scale        float64
	pageWidth    float64
	rendering    bool
	pending      int
	gen          uint64
	task         CancellableTask
	highlights   geometry.RegionSet
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPainter overrides the highlight painter.
func WithPainter(p *render.Painter) Option {
	return func(pl *Pipeline) { pl.painter = p }
}

// WithExtractor overrides the text extractor used by TextInRegion.
func WithExtractor(e *textregion.Extractor) Option {
	return func(pl *Pipeline) { pl.extractor = e }
}

// WithClamp overrides the explicit-zoom clamp bounds.
func WithClamp(c coords.Clamp) Option {
	return func(pl *Pipeline) { pl.clamp = c }
}

// WithPadding overrides the fit-width margin in device pixels.
func WithPadding(px float64) Option {
	return func(pl *Pipeline) { pl.padding = px }
}

// WithZoomMode sets the initial zoom mode.
func WithZoomMode(m coords.ZoomMode) Option {
	return func(pl *Pipeline) { pl.mode = m }
}

// WithFade enables the highlight fade-in ramp. The zero Fade (the default)
// draws highlights at full strength immediately. A Fade with Max set but a
// zero Step or Frame borrows the missing value from render.DefaultFade.
func WithFade(f render.Fade, c render.Clock) Option {
	return func(pl *Pipeline) {
		if f.Max > 0 {
			def := render.DefaultFade()
			if f.Step <= 0 {
				f.Step = def.Step
			}
			if f.Frame <= 0 {
				f.Frame = def.Frame
			}
		}
		pl.fade = f
		if c != nil {
			pl.clock = c
		}
	}
}

// WithFrameTicker overrides how the fade ramp schedules frames. Tests inject
// a manual ticker here alongside the Clock in WithFade.
func WithFrameTicker(tf render.TickerFactory) Option {
	return func(pl *Pipeline) {
		if tf != nil {
			pl.tickers = tf
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) Option {
	return func(pl *Pipeline) { pl.log = l }
}

// WithTracer attaches a tracer.
func WithTracer(t observability.Tracer) Option {
	return func(pl *Pipeline) { pl.tracer = t }
}

// WithErrorHandler registers a callback for asynchronous render failures.
// Load failures are both returned from LoadDocument and passed here.
func WithErrorHandler(fn func(*Error)) Option {
	return func(pl *Pipeline) { pl.onError = fn }
}

// NewPipeline builds a pipeline over engine, painting page content onto base
// and highlights onto overlay. overlay may be nil for headless use.
func NewPipeline(engine DocumentEngine, base, overlay render.Surface, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:    engine,
		base:      base,
		overlay:   overlay,
		painter:   render.NewPainter(),
		extractor: textregion.New(),
		clamp:     coords.DefaultClamp(),
		padding:   DefaultPadding,
		mode:      coords.ZoomFitWidth,
		explicit:  1.0,
		clock:     render.SystemClock(),
		tickers:   render.SystemTicker,
		log:       observability.NopLogger{},
		tracer:    observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a snapshot of the viewport.
func (p *Pipeline) State() ViewportState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ViewportState{
		URL:         p.url,
		Fingerprint: p.fingerprint,
		Page:        p.page,
		PageCount:   p.pageCount,
		Scale:       p.scale,
		Mode:        p.mode,
		Rendering:   p.rendering,
	}
}

// LoadDocument opens the document at url and renders page 1. Loading the
// already-open URL is a no-op, and a different URL whose bytes match the open
// document's fingerprint swaps the handle but keeps the current page. Any
// in-flight render is cancelled first. On failure the pipeline returns to the
// empty state and the error carries KindDocumentLoad.
func (p *Pipeline) LoadDocument(ctx context.Context, url string) error {
	p.mu.Lock()
	if p.doc != nil && p.url == url {
		p.mu.Unlock()
		p.log.Debug("document already loaded", observability.String("url", url))
		return nil
	}
	p.cancelInFlightLocked()
	p.mu.Unlock()

	start := time.Now()
	ctx, span := p.tracer.StartSpan(ctx, "viewer.load")
	defer span.Finish()
	doc, err := p.engine.LoadDocument(ctx, url)
	if err != nil {
		span.SetError(err)
		p.mu.Lock()
		p.doc = nil
		p.url = ""
		p.fingerprint = ""
		p.page = 0
		p.lastRendered = 0
		p.pageCount = 0
		p.highlights = nil
		p.mu.Unlock()
		e := &Error{Kind: KindDocumentLoad, Op: "load " + url, Err: err}
		p.report(e)
		return e
	}

	fp := ""
	if f, ok := doc.(Fingerprinted); ok {
		fp = f.Fingerprint()
	}

	p.mu.Lock()
	if p.doc != nil && fp != "" && fp == p.fingerprint {
		// Same bytes under a new name; keep the current position.
		p.doc = doc
		p.url = url
		p.mu.Unlock()
		return nil
	}
	p.doc = doc
	p.url = url
	p.fingerprint = fp
	p.pageCount = doc.PageCount()
	p.lastRendered = 0
	p.highlights = nil
	p.startRenderLocked(ctx, 1)
	p.mu.Unlock()

	p.log.Info("document loaded",
		observability.String("url", url),
		observability.Int("pages", doc.PageCount()),
		observability.String("metric", observability.MetricLoadTime),
		observability.Float64("seconds", time.Since(start).Seconds()))
	return nil
}

// RenderPage renders page n. If a render is in flight it is cancelled, n is
// parked in the single pending slot, and the call returns immediately; a
// burst of requests therefore coalesces into at most one extra render, of
// the newest page.
func (p *Pipeline) RenderPage(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || n < 1 || n > p.pageCount {
		return
	}
	p.requestRenderLocked(ctx, n)
}

// GoToPage displays page n. Out-of-range and current-page requests no-op;
// otherwise active highlights are cleared before the render starts.
func (p *Pipeline) GoToPage(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil || n < 1 || n > p.pageCount || n == p.page {
		return
	}
	p.clearHighlightsLocked()
	p.requestRenderLocked(ctx, n)
}

// SetZoom switches the zoom mode, with explicit carrying the factor for
// custom mode, and re-renders the current page.
func (p *Pipeline) SetZoom(ctx context.Context, mode coords.ZoomMode, explicit float64) {
	if !mode.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	if mode == coords.ZoomCustom && explicit > 0 {
		p.explicit = p.clamp.Apply(explicit)
	}
	if p.doc == nil || p.page < 1 {
		return
	}
	p.requestRenderLocked(ctx, p.page)
}

// Navigate shows a region set: go to the first region's page, then draw
// highlights for every region on the page actually rendered. If the target
// page is already displayed the overlay repaints without a re-render.
func (p *Pipeline) Navigate(ctx context.Context, rs geometry.RegionSet) {
	if len(rs) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return
	}
	target := rs[0].Page
	if target < 1 || target > p.pageCount {
		p.log.Warn("navigation target out of range",
			observability.Int("page", target),
			observability.Int("pages", p.pageCount))
		return
	}
	p.highlights = rs
	p.log.Debug("navigate",
		observability.Int("page", target),
		observability.String("metric", observability.MetricRegionCount),
		observability.Int("regions", len(rs)))
	switch {
	case target == p.page && p.rendering:
		// Highlights are drawn when the in-flight render completes.
	case target == p.page && p.lastRendered == target:
		p.drawHighlightsLocked()
	default:
		p.requestRenderLocked(ctx, target)
	}
}

// TextInRegion returns the text of the document's text layer inside q,
// falling back to OCR when the extractor is configured for it.
func (p *Pipeline) TextInRegion(ctx context.Context, q geometry.Quad) (string, error) {
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return "", errors.New("no document loaded")
	}
	ph, err := doc.Page(ctx, q.Page)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", q.Page, err)
	}
	items, err := ph.TextContent(ctx)
	if err != nil {
		return "", fmt.Errorf("text content for page %d: %w", q.Page, err)
	}
	start := time.Now()
	text, err := p.extractor.ExtractContext(ctx, q, coords.Identity(), items)
	if err != nil {
		return "", err
	}
	p.log.Debug("region extracted",
		observability.Int("page", q.Page),
		observability.String("metric", observability.MetricExtractTime),
		observability.Float64("seconds", time.Since(start).Seconds()))
	return text, nil
}

// requestRenderLocked starts a render or parks it in the pending slot,
// cancelling the in-flight one so a slow frame never overwrites a newer one.
func (p *Pipeline) requestRenderLocked(ctx context.Context, n int) {
	if p.rendering {
		p.pending = n
		if p.task != nil {
			p.task.Cancel()
		}
		return
	}
	p.startRenderLocked(ctx, n)
}

func (p *Pipeline) startRenderLocked(ctx context.Context, n int) {
	p.gen++
	p.rendering = true
	p.page = n
	p.task = nil
	go p.runRender(ctx, p.doc, p.gen, n)
}

func (p *Pipeline) runRender(ctx context.Context, doc Document, gen uint64, n int) {
	start := time.Now()
	ctx, span := p.tracer.StartSpan(ctx, "viewer.render")
	defer span.Finish()
	span.SetTag("page", n)

	ph, err := doc.Page(ctx, n)
	if err != nil {
		span.SetError(err)
		p.finishRender(ctx, gen, n, fmt.Errorf("page %d: %w", n, err))
		return
	}

	w, _ := ph.Size()
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.pageWidth = w
	p.scale = p.resolveScaleLocked()
	scale := p.scale
	p.mu.Unlock()

	task := ph.Render(p.base, scale)
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		task.Cancel()
		return
	}
	p.task = task
	p.mu.Unlock()

	err = task.Wait()
	if err == nil {
		p.log.Debug("page rendered",
			observability.Int("page", n),
			observability.Float64("scale", scale),
			observability.String("metric", observability.MetricRenderTime),
			observability.Float64("seconds", time.Since(start).Seconds()))
	}
	p.finishRender(ctx, gen, n, err)
}

// finishRender is the single completion path. The generation check discards
// completions of superseded renders regardless of how they settled.
func (p *Pipeline) finishRender(ctx context.Context, gen uint64, n int, err error) {
	var surfaced *Error

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debug("stale render completion discarded", observability.Int("page", n))
		return
	}
	p.rendering = false
	p.task = nil
	pending := p.pending
	p.pending = 0

	switch {
	case err == nil:
		p.lastRendered = n
		p.drawHighlightsLocked()
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		p.log.Debug("render cancelled",
			observability.Int("page", n),
			observability.String("metric", observability.MetricRenderCancelled))
	default:
		// The previous page stays visible rather than a blank canvas.
		if p.lastRendered >= 1 {
			p.page = p.lastRendered
		}
		surfaced = &Error{Kind: KindRender, Op: fmt.Sprintf("render page %d", n), Err: err}
	}

	if pending != 0 {
		p.startRenderLocked(ctx, pending)
	}
	p.mu.Unlock()

	if surfaced != nil {
		p.report(surfaced)
	}
}

func (p *Pipeline) resolveScaleLocked() float64 {
	cw, _ := p.base.Size()
	env := coords.ZoomEnv{
		ContainerWidth: float64(cw),
		Padding:        p.padding,
		PageWidth:      p.pageWidth,
	}
	return coords.ResolveScale(p.mode, p.explicit, env, p.clamp)
}

func (p *Pipeline) clearHighlightsLocked() {
	p.highlights = nil
	if p.overlay != nil {
		p.overlay.Clear()
	}
}

// drawHighlightsLocked repaints the overlay for the just-rendered page. Only
// regions on that page are drawn; with a fade configured the first frame is
// transparent and a frame loop ramps it up.
func (p *Pipeline) drawHighlightsLocked() {
	if p.overlay == nil {
		return
	}
	on := p.highlights.OnPage(p.page)
	if p.fade.Max > 0 && len(on) > 0 {
		p.startFadeLocked(on)
		return
	}
	p.painter.DrawRegions(p.overlay, on, p.scale, 1)
}

func (p *Pipeline) startFadeLocked(on geometry.RegionSet) {
	gen := p.gen
	scale := p.scale
	start := p.clock.Now()
	p.painter.DrawRegions(p.overlay, on, scale, 0)
	go func() {
		tick := p.tickers(p.fade.Frame)
		defer tick.Stop()
		for range tick.C() {
			elapsed := p.clock.Now().Sub(start)
			p.mu.Lock()
			if gen != p.gen {
				p.mu.Unlock()
				return
			}
			p.painter.DrawRegions(p.overlay, on, scale, p.fade.Factor(elapsed))
			done := p.fade.Done(elapsed)
			p.mu.Unlock()
			if done {
				return
			}
		}
	}()
}

// cancelInFlightLocked aborts any outstanding render and bumps the
// generation so its completion is discarded outright.
func (p *Pipeline) cancelInFlightLocked() {
	if p.task != nil {
		p.task.Cancel()
	}
	p.gen++
	p.rendering = false
	p.pending = 0
	p.task = nil
}

func (p *Pipeline) report(e *Error) {
	p.log.Error(string(e.Kind),
		observability.String("op", e.Op),
		observability.Error("error", e.Err))
	if p.onError != nil {
		p.onError(e)
	}
}
