// Package report renders a review summary (sections, fields, statistics,
// region counts) as HTML for export or printing.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/fieldlens/fieldlens/fields"
)

// Option configures the report.
type Option func(*options)

type options struct {
	title string
}

// WithTitle overrides the report heading.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

// Write renders the review as HTML into w.
func Write(w io.Writer, rev *fields.Review, opts ...Option) error {
	o := options{title: "Review " + rev.ID()}
	for _, opt := range opts {
		opt(&o)
	}
	md := buildMarkdown(rev, o)
	converter := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := converter.Convert([]byte(md), w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func buildMarkdown(rev *fields.Review, o options) string {
	fs := rev.Fields()
	stats := rev.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", o.title)
	fmt.Fprintf(&b, "%d fields, %d with regions, average confidence %.0f%%.\n\n",
		stats.Total, stats.WithRegions, stats.AvgConfidence*100)

	for _, section := range fields.GroupBySection(fs) {
		fmt.Fprintf(&b, "## %s\n\n", section.Name)
		b.WriteString("| Field | Value | Confidence | Regions |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for i := range section.Fields {
			f := &section.Fields[i]
			fmt.Fprintf(&b, "| %s | %s | %.0f%% | %d |\n",
				cell(fields.DisplayName(f.Name)),
				cell(f.Value),
				f.Confidence*100,
				len(f.Regions()))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
