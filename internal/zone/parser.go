// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package zone

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ringTags are geometry keywords that may prefix the coordinate list.
var ringTags = []string{"POLYGON", "LINEARRING", "LINESTRING"}

const ringDelimiters = "()[]{} \t\r\n"

// ringBreak separates the outer ring of a WKT polygon from its holes.
var ringBreak = regexp.MustCompile(`\)\s*,\s*\(`)

// Diagnostic describes one coordinate pair, or one inner ring, that was
// skipped.
type Diagnostic struct {
	Pair   int    // 1-based position of the pair in the ring text; inner rings sit past the last pair
	Token  string // the offending token, trimmed
	Reason string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("pair %d %q: %s", d.Pair, d.Token, d.Reason)
}

// Ring is the parse result for one ring text: the vertices that parsed and
// a diagnostic for every pair that did not.
type Ring struct {
	Vertices    []Vertex
	Diagnostics []Diagnostic
	Pairs       int // tokens seen, good or bad
}

// Clean reports whether every pair parsed.
func (r Ring) Clean() bool {
	return len(r.Diagnostics) == 0
}

// ParseRing parses "x y, x y, ..." ring text. Enclosing brackets and an
// optional POLYGON/LINEARRING tag are stripped first. Only the outer ring of
// a polygon is kept; each inner ring is dropped with a diagnostic. A
// malformed pair is skipped and reported, it never aborts the ring.
// Ordinates use '.' as the decimal point regardless of locale.
func ParseRing(text string) Ring {
	rings := ringBreak.Split(stripRingTag(text), -1)
	body := strings.Trim(rings[0], ringDelimiters)

	var r Ring
	if body != "" {
		tokens := strings.Split(body, ",")
		r = Ring{
			Vertices: make([]Vertex, 0, len(tokens)),
			Pairs:    len(tokens),
		}
		for i, tok := range tokens {
			tok = strings.TrimSpace(tok)
			v, reason := parsePair(tok)
			if reason != "" {
				r.Diagnostics = append(r.Diagnostics, Diagnostic{Pair: i + 1, Token: tok, Reason: reason})
				continue
			}
			r.Vertices = append(r.Vertices, v)
		}
	}

	for i, hole := range rings[1:] {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			Pair:   r.Pairs + 1,
			Token:  strings.Trim(hole, ringDelimiters),
			Reason: fmt.Sprintf("inner ring %d dropped", i+1),
		})
	}
	return r
}

func parsePair(tok string) (Vertex, string) {
	if tok == "" {
		return Vertex{}, "empty pair"
	}
	cut := strings.IndexFunc(tok, unicode.IsSpace)
	if cut < 0 {
		return Vertex{}, "missing y ordinate"
	}
	xs := tok[:cut]
	ys := strings.TrimSpace(tok[cut:])

	x, err := parseOrdinate(xs)
	if err != nil {
		return Vertex{}, "x: " + err.Error()
	}
	y, err := parseOrdinate(ys)
	if err != nil {
		return Vertex{}, "y: " + err.Error()
	}
	return Vertex{x, y}, ""
}

func parseOrdinate(s string) (float64, error) {
	// ParseFloat also takes hex floats, underscores and Inf/NaN spellings
	if s == "" || strings.Trim(s, "0123456789+-.eE") != "" {
		return 0, fmt.Errorf("not a decimal number %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a decimal number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func stripRingTag(text string) string {
	s := strings.TrimSpace(text)
	for _, tag := range ringTags {
		if len(s) >= len(tag) && strings.EqualFold(s[:len(tag)], tag) {
			return s[len(tag):]
		}
	}
	return s
}
