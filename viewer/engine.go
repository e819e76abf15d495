package viewer

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/fieldlens/fieldlens/render"
	"github.com/fieldlens/fieldlens/textregion"
)

// DocumentEngine is the page-rendering capability the pipeline consumes. It
// is deliberately small: the engine knows how to open a document and hand
// out pages; everything about lifecycle, ordering and cancellation policy
// lives in the Pipeline.
type DocumentEngine interface {
	LoadDocument(ctx context.Context, url string) (Document, error)
}

// Document is an open document.
type Document interface {
	PageCount() int
	Page(ctx context.Context, n int) (PageHandle, error)
}

// Fingerprinted is implemented by documents that can report a stable content
// digest. The pipeline uses it to recognize the same document arriving under
// a different URL.
type Fingerprinted interface {
	Fingerprint() string
}

// PageHandle is one page of an open document.
type PageHandle interface {
	// Size returns the page dimensions in page units (scale 1).
	Size() (w, h float64)
	// Render starts painting the page onto surface at the given scale and
	// returns immediately. Cancellation is best effort: the task may still
	// complete after Cancel, and the pipeline discards such completions.
	Render(surface render.Surface, scale float64) CancellableTask
	// TextContent returns the page's positioned text runs, if the document
	// carries a text layer. Engines without one return an empty slice.
	TextContent(ctx context.Context) ([]textregion.Item, error)
}

// CancellableTask is an in-flight render.
type CancellableTask interface {
	Cancel()
	// Wait blocks until the render settles. A cancelled render returns an
	// error satisfying errors.Is(err, ErrCancelled).
	Wait() error
}

// Fingerprint digests document bytes for Fingerprinted implementations.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
