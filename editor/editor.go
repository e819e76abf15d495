// Package editor implements drag-to-select region capture in page-unit
// space. A drag produces an axis-aligned quadrilateral; what happens to the
// committed quad (append to a field, replace an index, persist) is the
// caller's business.
package editor

import (
	"math"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/geometry"
)

// DefaultMinSelection is the smallest selection edge, in page units, that
// commits. Anything smaller is treated as an accidental click.
const DefaultMinSelection = 0.1

// State is the editor's gesture state.
type State int

const (
	StateIdle State = iota
	StateDragging
)

// Selection is the ephemeral drag rectangle: anchor and current point in
// page-unit space. It exists only during an active drag.
type Selection struct {
	Page            int
	Anchor, Current coords.Point
}

// Quad returns the selection as a quad with corners ordered
// (minX,minY)-(maxX,minY)-(maxX,maxY)-(minX,maxY).
func (s Selection) Quad() geometry.Quad {
	return geometry.FromRect(s.Page, s.Anchor.X, s.Anchor.Y, s.Current.X, s.Current.Y)
}

// Editor is the drag state machine. Not safe for concurrent use; one editor
// belongs to one viewer's single-threaded event loop.
type Editor struct {
	minSize  float64
	editMode bool
	state    State
	sel      Selection
	onUpdate func(Selection)
}

// Option configures an Editor.
type Option func(*Editor)

// WithMinSelection overrides the minimum commit size in page units.
func WithMinSelection(min float64) Option {
	return func(e *Editor) { e.minSize = min }
}

// WithRedraw registers a hook invoked whenever the live selection changes,
// so the owner can repaint the selection overlay.
func WithRedraw(fn func(Selection)) Option {
	return func(e *Editor) { e.onUpdate = fn }
}

func New(opts ...Option) *Editor {
	e := &Editor{minSize: DefaultMinSelection}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEditMode enables or disables capture. Disabling mid-drag cancels it.
func (e *Editor) SetEditMode(on bool) {
	e.editMode = on
	if !on {
		e.Cancel()
	}
}

// EditMode reports whether capture is enabled.
func (e *Editor) EditMode() bool { return e.editMode }

// State returns the current gesture state.
func (e *Editor) State() State { return e.state }

// BeginDrag records the anchor on the given page. It is ignored (returns
// false) outside edit mode or when no document page is current (page < 1).
func (e *Editor) BeginDrag(page int, p coords.Point) bool {
	if !e.editMode || page < 1 {
		return false
	}
	e.state = StateDragging
	e.sel = Selection{Page: page, Anchor: p, Current: p}
	return true
}

// UpdateDrag recomputes the live selection and requests an overlay redraw.
// It is ignored when no drag is active.
func (e *Editor) UpdateDrag(p coords.Point) {
	if e.state != StateDragging {
		return
	}
	e.sel.Current = p
	if e.onUpdate != nil {
		e.onUpdate(e.sel)
	}
}

// Selection returns the live drag rectangle, if any.
func (e *Editor) Selection() (Selection, bool) {
	return e.sel, e.state == StateDragging
}

// EndDrag commits the drag. Selections narrower or shorter than the minimum
// size are rejected: the editor returns to idle without producing a quad.
func (e *Editor) EndDrag() (geometry.Quad, bool) {
	if e.state != StateDragging {
		return geometry.Quad{}, false
	}
	sel := e.sel
	e.reset()
	if math.Abs(sel.Current.X-sel.Anchor.X) < e.minSize ||
		math.Abs(sel.Current.Y-sel.Anchor.Y) < e.minSize {
		return geometry.Quad{}, false
	}
	return sel.Quad(), true
}

// Cancel discards the live selection without committing, e.g. when the
// pointer leaves the render surface mid-drag.
func (e *Editor) Cancel() {
	if e.state != StateDragging {
		return
	}
	e.reset()
	if e.onUpdate != nil {
		e.onUpdate(Selection{})
	}
}

func (e *Editor) reset() {
	e.state = StateIdle
	e.sel = Selection{}
}
