package editor

import (
	"testing"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
	"github.com/google/go-cmp/cmp"
)

func drag(t *testing.T, e *Editor, page int, ax, ay, bx, by float64) (geometry.Quad, bool) {
	t.Helper()
	if !e.BeginDrag(page, coords.Point{X: ax, Y: ay}) {
		t.Fatal("BeginDrag refused")
	}
	e.UpdateDrag(coords.Point{X: bx, Y: by})
	return e.EndDrag()
}

func TestEndDragCommitsOrderedQuad(t *testing.T) {
	e := New()
	e.SetEditMode(true)

	// Drag bottom-right to top-left; corners still come out in canonical
	// order starting at (minX,minY).
	q, ok := drag(t, e, 3, 9, 7, 2, 1)
	if !ok {
		t.Fatal("expected commit")
	}
	want := geometry.Quad{Page: 3, X1: 2, Y1: 1, X2: 9, Y2: 1, X3: 9, Y3: 7, X4: 2, Y4: 7}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Fatalf("quad mismatch (-want +got):\n%s", diff)
	}
	if e.State() != StateIdle {
		t.Fatal("editor should return to idle after commit")
	}
}

func TestEndDragRejectsTinySelection(t *testing.T) {
	e := New()
	e.SetEditMode(true)

	if _, ok := drag(t, e, 1, 0, 0, 0.05, 0.05); ok {
		t.Fatal("selection below minimum size must not commit")
	}
	if _, ok := drag(t, e, 1, 0, 0, 1, 1); !ok {
		t.Fatal("selection above minimum size must commit")
	}
	// Thin in one dimension only is still rejected.
	if _, ok := drag(t, e, 1, 0, 0, 5, 0.05); ok {
		t.Fatal("zero-height selection must not commit")
	}
}

func TestCustomMinSelection(t *testing.T) {
	e := New(WithMinSelection(2))
	e.SetEditMode(true)
	if _, ok := drag(t, e, 1, 0, 0, 1, 1); ok {
		t.Fatal("1x1 should be below a 2-unit minimum")
	}
	if _, ok := drag(t, e, 1, 0, 0, 3, 3); !ok {
		t.Fatal("3x3 should commit")
	}
}

func TestBeginDragGuards(t *testing.T) {
	e := New()
	if e.BeginDrag(1, coords.Point{}) {
		t.Fatal("drag must be ignored outside edit mode")
	}
	e.SetEditMode(true)
	if e.BeginDrag(0, coords.Point{}) {
		t.Fatal("drag must be ignored with no current page")
	}
	if _, ok := e.EndDrag(); ok {
		t.Fatal("EndDrag without a drag must be a no-op")
	}
}

func TestCancelDiscardsSelection(t *testing.T) {
	var updates []Selection
	e := New(WithRedraw(func(s Selection) { updates = append(updates, s) }))
	e.SetEditMode(true)

	e.BeginDrag(1, coords.Point{X: 1, Y: 1})
	e.UpdateDrag(coords.Point{X: 5, Y: 5})
	e.Cancel()

	if _, ok := e.EndDrag(); ok {
		t.Fatal("cancelled drag must not commit")
	}
	if _, live := e.Selection(); live {
		t.Fatal("no live selection after cancel")
	}
	// One update for the move, one cleared selection for the cancel.
	if len(updates) != 2 || updates[1] != (Selection{}) {
		t.Fatalf("redraw updates = %+v", updates)
	}
}

func TestDisablingEditModeCancelsDrag(t *testing.T) {
	e := New()
	e.SetEditMode(true)
	e.BeginDrag(1, coords.Point{})
	e.UpdateDrag(coords.Point{X: 3, Y: 3})
	e.SetEditMode(false)
	if e.State() != StateIdle {
		t.Fatal("leaving edit mode must cancel the drag")
	}
}
