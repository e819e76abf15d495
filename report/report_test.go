package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/fieldlens/fieldlens/fields"
)

func testReview(t *testing.T) *fields.Review {
	t.Helper()
	store := fields.NewMemStore()
	store.Seed("rev-7", []fields.Field{
		{ID: "f1", Name: "invoice_total", Value: "199.00", Section: "Totals",
			Confidence: 0.9, EncodedRegions: "D(1,10,10,50,10,50,30,10,30)"},
		{ID: "f2", Name: "vendor_name", Value: "ACME | Co", Confidence: 0.5},
	})
	rev, err := fields.LoadReview(context.Background(), store, "rev-7")
	if err != nil {
		t.Fatalf("LoadReview: %v", err)
	}
	return rev
}

func collect(n *html.Node, tag string, out *[]string) {
	if n.Type == html.ElementNode && n.Data == tag {
		*out = append(*out, textOf(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, tag, out)
	}
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testReview(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	var h1s, h2s, cells []string
	collect(doc, "h1", &h1s)
	collect(doc, "h2", &h2s)
	collect(doc, "td", &cells)

	if len(h1s) != 1 || h1s[0] != "Review rev-7" {
		t.Errorf("h1 = %v", h1s)
	}
	// Sections in alphabetical order, uncategorized fields grouped last.
	if len(h2s) != 2 || h2s[0] != "Totals" || h2s[1] != fields.Uncategorized {
		t.Errorf("h2 = %v", h2s)
	}

	joined := strings.Join(cells, "\n")
	for _, want := range []string{"Invoice Total", "199.00", "90%", "ACME | Co", "Vendor Name"} {
		if !strings.Contains(joined, want) {
			t.Errorf("cells missing %q in:\n%s", want, joined)
		}
	}

	var tables []string
	collect(doc, "table", &tables)
	if len(tables) != 2 {
		t.Errorf("tables = %d, want one per section", len(tables))
	}
}

func TestWriteCustomTitle(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testReview(t), WithTitle("Q3 Invoices")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "Q3 Invoices") {
		t.Error("custom title missing")
	}
}
