// Package ocr defines the recognition boundary used when a page exposes no
// text layer. The text extractor renders the target region to pixels and
// hands it to an Engine; the engine never sees page units.
package ocr

import (
	"context"
	"sync"
)

// Region describes a rectangular area in pixel coordinates with the origin
// in the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is a single image submitted for recognition.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in Result.
	ID string
	// Image is the encoded image payload (PNG unless Metadata says otherwise).
	Image []byte
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages is a list of language hints (e.g. "eng") for trained data.
	Languages []string
	// Region restricts recognition to a subsection of the image. Nil means
	// the full image.
	Region *Region
	// Metadata passes engine-specific knobs through without widening the API.
	Metadata map[string]string
}

// Word is a single recognized token with its pixel bounds.
type Word struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures recognition output for one input image.
type Result struct {
	InputID   string
	PlainText string
	Words     []Word
}

// Engine is the provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

var (
	defaultMu     sync.RWMutex
	defaultEngine Engine
)

// SetDefaultEngine registers the process-wide fallback engine. Provider
// packages call this from init.
func SetDefaultEngine(e Engine) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = e
}

// DefaultEngine returns the registered engine, or nil when none is linked in.
func DefaultEngine() Engine {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultEngine
}
