// Command fieldlens is a terminal reviewer for extracted document fields: a
// field list on the left drives a page view on the right through the
// navigation broker, with region highlights drawn over the rendered page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fieldlens/fieldlens/coords"
	"github.com/fieldlens/fieldlens/engine/pdfcpuengine"
	"github.com/fieldlens/fieldlens/fields"
	"github.com/fieldlens/fieldlens/navigation"
	"github.com/fieldlens/fieldlens/ocr"
	_ "github.com/fieldlens/fieldlens/ocr/tesseract" // registers the default engine
	"github.com/fieldlens/fieldlens/textregion"
	"github.com/fieldlens/fieldlens/viewer"
)

type options struct {
	pdfURL     string
	fieldsPath string
	reviewID   string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldlens: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "fieldlens: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: fieldlens -pdf <url|path> -fields <json>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.pdfURL, "pdf", "", "document to open (http(s) URL or file path)")
	flag.StringVar(&opts.fieldsPath, "fields", "", "extraction JSON with the field set")
	flag.StringVar(&opts.reviewID, "review", "local", "review identifier")
	flag.Parse()

	if opts.pdfURL == "" || opts.fieldsPath == "" {
		return opts, fmt.Errorf("both -pdf and -fields are required")
	}
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()

	fs, err := loadFields(opts.fieldsPath, opts.pdfURL)
	if err != nil {
		return err
	}
	store := fields.NewMemStore()
	store.Seed(opts.reviewID, fs)
	review, err := fields.LoadReview(ctx, store, opts.reviewID)
	if err != nil {
		return err
	}

	base := newCellSurface(80, 24)
	overlay := newCellSurface(80, 24)
	errs := &errBox{}
	eng := pdfcpuengine.New()

	// Regions the engine has no text layer for go through the recognition
	// fallback at print resolution.
	var pipeline *viewer.Pipeline
	extr := textregion.New(textregion.WithOCRFallback(
		ocr.DefaultEngine(),
		viewer.RegionImager(eng, func() string { return pipeline.State().URL }),
		150,
	))
	pipeline = viewer.NewPipeline(
		eng,
		base, overlay,
		viewer.WithExtractor(extr),
		viewer.WithPadding(2),
		// Cell grids run far below print scale; widen the zoom clamp.
		viewer.WithClamp(coords.Clamp{Min: 0.01, Max: 8}),
		viewer.WithErrorHandler(errs.set),
	)

	broker := navigation.NewBroker()
	sub := pipeline.Attach(ctx, broker)
	defer sub.Cancel()

	broker.Publish(navigation.LoadDocument{URL: opts.pdfURL})

	m := newModel(opts.pdfURL, review, broker, pipeline, base, overlay, errs)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
