// Package fields models the logical data fields extracted from a document:
// identifier, display name, value, section membership, confidence and the
// encoded regions tying the value back to the source page.
package fields

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fieldlens/fieldlens/geometry"
)

// Uncategorized is the section assigned to fields without one.
const Uncategorized = "Uncategorized"

// Field is one extracted data field. Navigation and rendering never mutate
// a field except to cache decoded regions alongside the raw encoding.
type Field struct {
	ID             string
	Name           string
	Value          string
	Section        string
	Confidence     float64
	EncodedRegions string
	AttachmentRef  string

	regions geometry.RegionSet
	decoded bool
}

// Regions returns the decoded region set, decoding and caching on first
// access. A malformed encoding yields an empty set, never an error.
func (f *Field) Regions() geometry.RegionSet {
	if !f.decoded {
		f.regions = geometry.DecodeAll(f.EncodedRegions)
		f.decoded = true
	}
	return f.regions
}

// SetRegions replaces the region set and re-encodes it canonically.
func (f *Field) SetRegions(rs geometry.RegionSet) {
	f.regions = rs
	f.decoded = true
	f.EncodedRegions = geometry.EncodeAll(rs)
}

// HasRegions reports whether the field decodes to at least one region.
func (f *Field) HasRegions() bool { return len(f.Regions()) > 0 }

// ParseConfidence normalizes a raw confidence score into [0, 1]. Upstream
// extractors disagree on units; values above 1 are percentages.
func ParseConfidence(raw float64) float64 {
	if raw > 1 {
		raw /= 100
	}
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}

// DisplayName renders a raw field name for humans: underscores and dashes
// become spaces, camel-case humps split, and each word is capitalized.
func DisplayName(name string) string {
	var words []string
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		words = append(words, splitCamel(part)...)
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

// Filter returns the fields whose display name, raw name or value contains
// query, case-insensitively. An empty query returns everything.
func Filter(fs []Field, query string) []Field {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return fs
	}
	var out []Field
	for _, f := range fs {
		if strings.Contains(strings.ToLower(DisplayName(f.Name)), query) ||
			strings.Contains(strings.ToLower(f.Name), query) ||
			strings.Contains(strings.ToLower(f.Value), query) {
			out = append(out, f)
		}
	}
	return out
}

// Section is a named group of fields.
type Section struct {
	Name   string
	Fields []Field
}

// GroupBySection groups fields by section name, alphabetically by section.
// Fields without a section land in Uncategorized. Field order within a
// section follows input order.
func GroupBySection(fs []Field) []Section {
	byName := make(map[string][]Field)
	for _, f := range fs {
		name := f.Section
		if name == "" {
			name = Uncategorized
		}
		byName[name] = append(byName[name], f)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Section, len(names))
	for i, name := range names {
		out[i] = Section{Name: name, Fields: byName[name]}
	}
	return out
}

// Documents returns the distinct attachment refs across fields in first-seen
// order; the first entry is the natural preselection.
func Documents(fs []Field) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range fs {
		if f.AttachmentRef == "" || seen[f.AttachmentRef] {
			continue
		}
		seen[f.AttachmentRef] = true
		out = append(out, f.AttachmentRef)
	}
	return out
}

// Stats summarizes a field set.
type Stats struct {
	Total         int
	WithRegions   int
	AvgConfidence float64
}

// Summarize computes review statistics over fs.
func Summarize(fs []Field) Stats {
	s := Stats{Total: len(fs)}
	if len(fs) == 0 {
		return s
	}
	var sum float64
	for i := range fs {
		if fs[i].HasRegions() {
			s.WithRegions++
		}
		sum += fs[i].Confidence
	}
	s.AvgConfidence = sum / float64(len(fs))
	return s
}
