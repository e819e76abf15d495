package geometry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Encoded string grammar, fixed arity: one 1-based integer page followed by
// eight non-negative page-unit floats. Multiple regions join with ";".
var quadPattern = regexp.MustCompile(
	`^D\((\d+),([\d.]+),([\d.]+),([\d.]+),([\d.]+),([\d.]+),([\d.]+),([\d.]+),([\d.]+)\)$`)

// DecodeOne parses a single encoded segment. It reports ok=false for any
// malformed input, including a page below 1; it never panics or errors so
// field display can degrade to "no region available".
func DecodeOne(s string) (Quad, bool) {
	m := quadPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Quad{}, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page < 1 {
		return Quad{}, false
	}
	var v [8]float64
	for i := 0; i < 8; i++ {
		f, err := strconv.ParseFloat(m[i+2], 64)
		if err != nil {
			return Quad{}, false
		}
		v[i] = f
	}
	return Quad{
		Page: page,
		X1:   v[0], Y1: v[1],
		X2: v[2], Y2: v[3],
		X3: v[4], Y3: v[5],
		X4: v[6], Y4: v[7],
	}, true
}

// DecodeAll splits s on ";" and decodes each segment independently.
// Malformed segments are dropped silently; a bad segment between valid ones
// does not abort the parse. Empty or unparseable input yields an empty set.
func DecodeAll(s string) RegionSet {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out RegionSet
	for _, seg := range strings.Split(s, ";") {
		if q, ok := DecodeOne(seg); ok {
			out = append(out, q)
		}
	}
	return out
}

// DecodeAllStrict is DecodeAll for callers that want to know about bad
// segments instead of dropping them. The returned error names the first
// offending segment; valid segments decoded so far are still returned.
func DecodeAllStrict(s string) (RegionSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out RegionSet
	for i, seg := range strings.Split(s, ";") {
		q, ok := DecodeOne(seg)
		if !ok {
			return out, fmt.Errorf("segment %d: malformed region %q", i, strings.TrimSpace(seg))
		}
		out = append(out, q)
	}
	return out, nil
}

// Encode serializes q to its canonical form with 4 decimal places.
func Encode(q Quad) string {
	var b strings.Builder
	b.WriteString("D(")
	b.WriteString(strconv.Itoa(q.Page))
	for _, v := range []float64{q.X1, q.Y1, q.X2, q.Y2, q.X3, q.Y3, q.X4, q.Y4} {
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
	}
	b.WriteByte(')')
	return b.String()
}

// EncodeAll joins the canonical encodings with ";".
func EncodeAll(qs RegionSet) string {
	segs := make([]string, len(qs))
	for i, q := range qs {
		segs[i] = Encode(q)
	}
	return strings.Join(segs, ";")
}
