package scripting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fieldlens/fieldlens/fields"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/fieldlens/fieldlens/navigation"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

type fakeDOM struct {
	pages     []int
	zooms     []string
	alerts    []string
	field     *fakeField
	fieldName string
}

func (d *fakeDOM) GoToPage(n int) { d.pages = append(d.pages, n) }
func (d *fakeDOM) SetZoom(mode string, scale float64) {
	if mode == "" {
		mode = "custom"
	}
	d.zooms = append(d.zooms, mode)
}
func (d *fakeDOM) Alert(m string) { d.alerts = append(d.alerts, m) }
func (d *fakeDOM) Field(name string) (FieldProxy, error) {
	if name != d.fieldName {
		return nil, errors.New("not found")
	}
	return d.field, nil
}

type fakeField struct {
	value     string
	regions   geometry.RegionSet
	navigated int
}

func (f *fakeField) Value() string               { return f.value }
func (f *fakeField) SetValue(v string)           { f.value = v }
func (f *fakeField) Regions() geometry.RegionSet { return f.regions }
func (f *fakeField) Navigate()                   { f.navigated++ }

func TestGojaEngine_ViewerDOM(t *testing.T) {
	dom := &fakeDOM{
		fieldName: "invoice_total",
		field: &fakeField{
			value:   "100.00",
			regions: geometry.RegionSet{geometry.FromRect(2, 10, 10, 50, 30)},
		},
	}
	engine := NewEngine()
	if err := engine.RegisterDOM(dom); err != nil {
		t.Fatalf("RegisterDOM: %v", err)
	}
	ctx := context.Background()

	script := `
		goToPage(3);
		setZoom("fit-width");
		setZoom(1.5);
		var f = field("invoice_total");
		f.navigate();
		f.value = f.value + " EUR";
		app.alert("pages: " + f.regions.length);
		f.regions[0].page;
	`
	got, err := engine.Execute(ctx, script)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fmt.Sprint(got) != "2" {
		t.Fatalf("result = %v (%T)", got, got)
	}
	if len(dom.pages) != 1 || dom.pages[0] != 3 {
		t.Errorf("pages = %v", dom.pages)
	}
	if len(dom.zooms) != 2 || dom.zooms[0] != "fit-width" || dom.zooms[1] != "custom" {
		t.Errorf("zooms = %v", dom.zooms)
	}
	if dom.field.navigated != 1 {
		t.Errorf("navigated = %d", dom.field.navigated)
	}
	if dom.field.value != "100.00 EUR" {
		t.Errorf("value = %q", dom.field.value)
	}
	if len(dom.alerts) != 1 || dom.alerts[0] != "pages: 1" {
		t.Errorf("alerts = %v", dom.alerts)
	}

	if v, err := engine.Execute(ctx, `field("missing")`); err != nil || v != nil {
		t.Fatalf("missing field: %v, %v", v, err)
	}
}

func TestBrokerDOM(t *testing.T) {
	ctx := context.Background()
	store := fields.NewMemStore()
	store.Seed("rev", []fields.Field{{
		ID:             "f1",
		Name:           "invoice_total",
		Value:          "100.00",
		AttachmentRef:  "inv.pdf",
		EncodedRegions: "D(2,10,10,50,10,50,30,10,30)",
	}})
	review, err := fields.LoadReview(ctx, store, "rev")
	if err != nil {
		t.Fatalf("LoadReview: %v", err)
	}

	broker := navigation.NewBroker()
	var published []navigation.Message
	broker.Subscribe(func(m navigation.Message) { published = append(published, m) })

	engine := NewEngine()
	if err := engine.RegisterDOM(NewBrokerDOM(broker, review, nil)); err != nil {
		t.Fatalf("RegisterDOM: %v", err)
	}

	script := `
		var f = field("invoice_total");
		f.navigate();
		f.value = "120.00";
		goToPage(2);
	`
	if _, err := engine.Execute(ctx, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(published) != 2 {
		t.Fatalf("published = %d messages", len(published))
	}
	nav, ok := published[0].(navigation.NavigateToRegions)
	if !ok || nav.DocumentURL != "inv.pdf" || len(nav.Regions) != 1 || nav.Regions[0].Page != 2 {
		t.Fatalf("navigate message = %#v", published[0])
	}

	// The scripted edit autosaved through the store.
	fs, _ := store.Fetch(ctx, "rev")
	if fs[0].Value != "120.00" {
		t.Fatalf("store value = %q", fs[0].Value)
	}
}
