package scripting

import (
	"context"

	"github.com/fieldlens/fieldlens/geometry"
)

// Engine represents a scripting engine (e.g., JavaScript) driving a viewer.
type Engine interface {
	// Execute runs a script against the registered viewer DOM.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDOM registers the viewer automation surface with the engine.
	RegisterDOM(dom ViewerDOM) error
}

// ViewerDOM exposes one viewer instance and its review to scripts. It is a
// safe, controlled surface: scripts see fields and navigation, never the
// pipeline internals.
type ViewerDOM interface {
	// GoToPage displays a page, 1-based.
	GoToPage(n int)

	// SetZoom switches zoom. mode names a preset; an empty mode with a
	// positive scale means an explicit custom factor.
	SetZoom(mode string, scale float64)

	// Field returns a field by raw name.
	Field(name string) (FieldProxy, error)

	// Alert surfaces a message (if supported by the runner).
	Alert(message string)
}

// FieldProxy represents a field exposed to scripts.
type FieldProxy interface {
	Value() string
	SetValue(value string)
	Regions() geometry.RegionSet
	// Navigate shows the field's regions in the viewer.
	Navigate()
}
