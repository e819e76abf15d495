package viewer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/navigation"
	"github.com/fieldlens/fieldlens/render"
	"github.com/fieldlens/fieldlens/textregion"
	"github.com/fieldlens/fieldlens/viewer"
)

type fakeTask struct {
	once sync.Once
	done chan struct{}
	mu   sync.Mutex
	err  error

	cancelled bool
}

func (t *fakeTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *fakeTask) Wait() error {
	<-t.done
	return t.err
}

func (t *fakeTask) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// release settles a manually controlled task the way a real engine would: a
// cancelled task errors with ErrCancelled, anything else succeeds.
func (t *fakeTask) release() {
	t.mu.Lock()
	cancelled := t.cancelled
	t.mu.Unlock()
	if cancelled {
		t.finish(viewer.ErrCancelled)
	} else {
		t.finish(nil)
	}
}

type renderCall struct {
	page  int
	scale float64
}

type fakeEngine struct {
	manual   bool
	pages    int
	data     []byte
	failLoad error
	failPage int
	items    map[int][]textregion.Item

	mu      sync.Mutex
	loads   int
	renders []renderCall
	tasks   []*fakeTask
}

func (e *fakeEngine) LoadDocument(context.Context, string) (viewer.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	if e.failLoad != nil {
		return nil, e.failLoad
	}
	return &fakeDoc{e: e}, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

func (e *fakeEngine) renderPages() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	pages := make([]int, len(e.renders))
	for i, r := range e.renders {
		pages[i] = r.page
	}
	return pages
}

func (e *fakeEngine) lastScale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.renders) == 0 {
		return 0
	}
	return e.renders[len(e.renders)-1].scale
}

func (e *fakeEngine) taskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

func (e *fakeEngine) releaseTask(i int) {
	e.mu.Lock()
	t := e.tasks[i]
	e.mu.Unlock()
	t.release()
}

type fakeDoc struct{ e *fakeEngine }

func (d *fakeDoc) PageCount() int { return d.e.pages }

func (d *fakeDoc) Page(_ context.Context, n int) (viewer.PageHandle, error) {
	return &fakePage{e: d.e, n: n}, nil
}

func (d *fakeDoc) Fingerprint() string {
	if d.e.data == nil {
		return ""
	}
	return viewer.Fingerprint(d.e.data)
}

type fakePage struct {
	e *fakeEngine
	n int
}

func (p *fakePage) Size() (float64, float64) { return 612, 792 }

func (p *fakePage) Render(_ render.Surface, scale float64) viewer.CancellableTask {
	t := &fakeTask{done: make(chan struct{})}
	p.e.mu.Lock()
	p.e.renders = append(p.e.renders, renderCall{page: p.n, scale: scale})
	p.e.tasks = append(p.e.tasks, t)
	manual, failPage := p.e.manual, p.e.failPage
	p.e.mu.Unlock()
	if !manual {
		if failPage == p.n {
			t.finish(errors.New("damaged page"))
		} else {
			t.finish(nil)
		}
	}
	return t
}

func (p *fakePage) TextContent(context.Context) ([]textregion.Item, error) {
	return p.e.items[p.n], nil
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func settled(p *viewer.Pipeline, page int) func() bool {
	return func() bool {
		s := p.State()
		return !s.Rendering && s.Page == page
	}
}

func newViewer(e *fakeEngine, opts ...viewer.Option) (*viewer.Pipeline, *render.Recorder, *render.Recorder) {
	base := &render.Recorder{W: 652, H: 800, Down: true}
	overlay := &render.Recorder{W: 652, H: 800, Down: true}
	p := viewer.NewPipeline(e, base, overlay, opts...)
	return p, base, overlay
}

func TestLoadDocumentIdempotent(t *testing.T) {
	e := &fakeEngine{pages: 3}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	if err := p.LoadDocument(ctx, "file:///a.pdf"); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	waitFor(t, "page 1 rendered", settled(p, 1))
	if err := p.LoadDocument(ctx, "file:///a.pdf"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := e.loadCount(); got != 1 {
		t.Errorf("engine loads = %d, want 1", got)
	}
	if pages := e.renderPages(); len(pages) != 1 || pages[0] != 1 {
		t.Errorf("renders = %v, want [1]", pages)
	}
	s := p.State()
	if s.PageCount != 3 || s.Page != 1 {
		t.Errorf("state = %+v", s)
	}
}

func TestRenderCoalescing(t *testing.T) {
	e := &fakeEngine{pages: 5, manual: true}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	if err := p.LoadDocument(ctx, "doc"); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	waitFor(t, "first render started", func() bool { return e.taskCount() == 1 })

	// Burst while page 1 is still painting: only the newest page survives.
	p.RenderPage(ctx, 2)
	p.RenderPage(ctx, 3)
	p.RenderPage(ctx, 4)
	if pages := e.renderPages(); len(pages) != 1 {
		t.Fatalf("burst must not start new renders, got %v", pages)
	}

	e.releaseTask(0)
	waitFor(t, "pending render started", func() bool { return e.taskCount() == 2 })
	e.releaseTask(1)
	waitFor(t, "page 4 rendered", settled(p, 4))

	pages := e.renderPages()
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 4 {
		t.Fatalf("renders = %v, want [1 4]", pages)
	}
}

func TestStaleCompletionDiscarded(t *testing.T) {
	e := &fakeEngine{pages: 2, manual: true}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	if err := p.LoadDocument(ctx, "first"); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	waitFor(t, "first render started", func() bool { return e.taskCount() == 1 })

	if err := p.LoadDocument(ctx, "second"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	waitFor(t, "second render started", func() bool { return e.taskCount() == 2 })

	// The superseded task completes successfully anyway; the generation
	// check must throw the completion away.
	e.releaseTask(0)
	if s := p.State(); !s.Rendering {
		t.Fatal("stale completion must not mark the new render finished")
	}

	e.releaseTask(1)
	waitFor(t, "second document rendered", settled(p, 1))
	if s := p.State(); s.URL != "second" {
		t.Fatalf("URL = %q", s.URL)
	}
	if pages := e.renderPages(); len(pages) != 2 {
		t.Fatalf("renders = %v, want two", pages)
	}
}

func TestSameContentUnderNewURLKeepsPosition(t *testing.T) {
	e := &fakeEngine{pages: 5, data: []byte("same bytes")}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	p.LoadDocument(ctx, "v1")
	waitFor(t, "page 1 rendered", settled(p, 1))
	p.GoToPage(ctx, 3)
	waitFor(t, "page 3 rendered", settled(p, 3))

	if err := p.LoadDocument(ctx, "v2"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	s := p.State()
	if s.URL != "v2" || s.Page != 3 {
		t.Fatalf("state = %+v, want url v2 at page 3", s)
	}
	if pages := e.renderPages(); len(pages) != 2 {
		t.Fatalf("renders = %v, identical content must not re-render", pages)
	}
}

func TestLoadFailure(t *testing.T) {
	e := &fakeEngine{pages: 3, failLoad: errors.New("404")}
	var reported *viewer.Error
	p, _, _ := newViewer(e, viewer.WithErrorHandler(func(err *viewer.Error) { reported = err }))

	err := p.LoadDocument(context.Background(), "missing")
	var ve *viewer.Error
	if !errors.As(err, &ve) || ve.Kind != viewer.KindDocumentLoad {
		t.Fatalf("err = %v", err)
	}
	if reported == nil || reported.Kind != viewer.KindDocumentLoad {
		t.Fatalf("handler got %v", reported)
	}
	if s := p.State(); s.Loaded() || s.URL != "" {
		t.Fatalf("pipeline must return to the empty state, got %+v", s)
	}
}

func TestRenderFailureKeepsPreviousPage(t *testing.T) {
	e := &fakeEngine{pages: 5, failPage: 3}
	errs := make(chan *viewer.Error, 1)
	p, _, _ := newViewer(e, viewer.WithErrorHandler(func(err *viewer.Error) { errs <- err }))
	ctx := context.Background()

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))

	p.GoToPage(ctx, 3)
	select {
	case err := <-errs:
		if err.Kind != viewer.KindRender {
			t.Fatalf("kind = %v", err.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no render error reported")
	}
	waitFor(t, "pipeline settled", func() bool { return !p.State().Rendering })
	if s := p.State(); s.Page != 1 {
		t.Fatalf("page = %d, previous page must stay visible", s.Page)
	}
}

func TestGoToPageNoOps(t *testing.T) {
	e := &fakeEngine{pages: 3}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))

	p.GoToPage(ctx, 0)
	p.GoToPage(ctx, 4)
	p.GoToPage(ctx, 1)
	if pages := e.renderPages(); len(pages) != 1 {
		t.Fatalf("renders = %v, want only the initial one", pages)
	}
}

func TestNavigateHighlightsPageRegionsOnly(t *testing.T) {
	e := &fakeEngine{pages: 5}
	p, _, overlay := newViewer(e)
	ctx := context.Background()

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))

	rs := geometry.RegionSet{
		geometry.FromRect(2, 10, 10, 50, 30),
		geometry.FromRect(2, 10, 40, 50, 60),
		geometry.FromRect(5, 0, 0, 20, 20),
	}
	p.Navigate(ctx, rs)
	waitFor(t, "page 2 rendered", settled(p, 2))

	if n := len(overlay.Polygons); n != 2 {
		t.Fatalf("overlay polygons = %d, want the two page-2 regions", n)
	}
	if pages := e.renderPages(); len(pages) != 2 || pages[1] != 2 {
		t.Fatalf("renders = %v", pages)
	}

	// Same page again repaints the overlay without a re-render.
	p.Navigate(ctx, geometry.RegionSet{geometry.FromRect(2, 1, 1, 9, 9)})
	if pages := e.renderPages(); len(pages) != 2 {
		t.Fatalf("same-page navigate must not re-render, got %v", pages)
	}
	if n := len(overlay.Polygons); n != 1 {
		t.Fatalf("overlay polygons = %d after repaint", n)
	}
}

func TestGoToPageClearsHighlights(t *testing.T) {
	e := &fakeEngine{pages: 3}
	p, _, overlay := newViewer(e)
	ctx := context.Background()

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))
	p.Navigate(ctx, geometry.RegionSet{geometry.FromRect(1, 10, 10, 50, 30)})
	if len(overlay.Polygons) != 1 {
		t.Fatalf("highlight not drawn")
	}

	p.GoToPage(ctx, 2)
	waitFor(t, "page 2 rendered", settled(p, 2))
	if len(overlay.Polygons) != 0 {
		t.Fatalf("highlights must be cleared on page change, got %d", len(overlay.Polygons))
	}
}

func TestSetZoomResolvesScale(t *testing.T) {
	e := &fakeEngine{pages: 2}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))
	// fit-width on a 652px container with 40px padding over a 612pt page.
	if s := p.State().Scale; s != 1.0 {
		t.Fatalf("fit-width scale = %g, want 1.0", s)
	}

	p.SetZoom(ctx, coords.ZoomCustom, 2)
	waitFor(t, "re-render at 2x", func() bool { return !p.State().Rendering && e.lastScale() == 2 })

	p.SetZoom(ctx, coords.ZoomCustom, 10)
	waitFor(t, "clamped re-render", func() bool { return !p.State().Rendering && e.lastScale() == 4 })

	p.SetZoom(ctx, coords.ZoomActualSize, 0)
	waitFor(t, "actual size", func() bool { return !p.State().Rendering && e.lastScale() == 1 })
}

func TestBrokerDrivesPipeline(t *testing.T) {
	e := &fakeEngine{pages: 4}
	p, _, overlay := newViewer(e)
	ctx := context.Background()
	b := navigation.NewBroker()
	sub := p.Attach(ctx, b)
	defer sub.Cancel()

	b.Publish(navigation.LoadDocument{URL: "doc-a"})
	waitFor(t, "page 1 rendered", settled(p, 1))

	b.Publish(navigation.GoToPage{Page: 2})
	waitFor(t, "page 2 rendered", settled(p, 2))

	b.Publish(navigation.SetZoom{Mode: coords.ZoomCustom, Scale: 1.5})
	waitFor(t, "zoomed", func() bool { return !p.State().Rendering && e.lastScale() == 1.5 })

	// Region navigation naming another document loads it first.
	b.Publish(navigation.NavigateToRegions{
		DocumentURL: "doc-b",
		Regions:     geometry.RegionSet{geometry.FromRect(3, 5, 5, 40, 20)},
	})
	waitFor(t, "doc-b page 3", func() bool {
		s := p.State()
		return !s.Rendering && s.URL == "doc-b" && s.Page == 3
	})
	if e.loadCount() != 2 {
		t.Fatalf("loads = %d, want 2", e.loadCount())
	}
	if len(overlay.Polygons) != 1 {
		t.Fatalf("overlay polygons = %d", len(overlay.Polygons))
	}
}

func TestTextInRegion(t *testing.T) {
	e := &fakeEngine{
		pages: 1,
		items: map[int][]textregion.Item{
			1: {
				{Text: "Total", X: 10, Y: 100, Width: 30, Height: 10},
				{Text: "42.00", X: 50, Y: 100, Width: 30, Height: 10},
			},
		},
	}
	p, _, _ := newViewer(e)
	ctx := context.Background()

	if _, err := p.TextInRegion(ctx, geometry.FromRect(1, 0, 0, 10, 10)); err == nil {
		t.Fatal("expected error with no document")
	}

	p.LoadDocument(ctx, "doc")
	waitFor(t, "page 1 rendered", settled(p, 1))
	got, err := p.TextInRegion(ctx, geometry.FromRect(1, 0, 90, 200, 120))
	if err != nil {
		t.Fatalf("TextInRegion: %v", err)
	}
	if got != "Total 42.00" {
		t.Fatalf("text = %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := viewer.Fingerprint([]byte("alpha"))
	b := viewer.Fingerprint([]byte("beta"))
	if len(a) != 64 || a == b {
		t.Fatalf("fingerprints a=%q b=%q", a, b)
	}
	if a != viewer.Fingerprint([]byte("alpha")) {
		t.Fatal("fingerprint must be deterministic")
	}
}
