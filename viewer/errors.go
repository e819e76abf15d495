package viewer

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a render that was superseded or aborted. It is never a
// user-facing failure; the pipeline swallows it after the generation check.
var ErrCancelled = errors.New("render cancelled")

// Kind classifies pipeline failures so callers can decide presentation. A
// load failure leaves the viewer empty with a retry affordance; a render
// failure leaves the previous page visible.
type Kind string

const (
	KindDocumentLoad Kind = "document-load"
	KindRender       Kind = "render"
)

// Error is a structured pipeline failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
