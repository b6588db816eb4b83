// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package zone holds named zone polygons, the ring-text parser that builds
// them and the point-in-polygon membership test.
package zone

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// MinVertices is the smallest ring that encloses an area.
const MinVertices = 3

// NoneName is the signal payload when no zone contains the point.
const NoneName = "None"

// ErrTooFewVertices rejects rings that cannot form a polygon.
var ErrTooFewVertices = errors.New("polygon needs at least 3 vertices")

// Vertex is a ring vertex in the local frame (X east, Y north, metres).
type Vertex = orb.Point

// Polygon is a named zone. The ring is implicitly closed: the last vertex
// connects back to the first.
type Polygon struct {
	Name  string
	Ring  orb.Ring
	Bound orb.Bound
}

// NewPolygon copies vertices into a new Polygon.
func NewPolygon(name string, vertices []Vertex) (Polygon, error) {
	if len(vertices) < MinVertices {
		return Polygon{}, fmt.Errorf("zone %q: %w (got %d)", name, ErrTooFewVertices, len(vertices))
	}
	ring := make(orb.Ring, len(vertices))
	copy(ring, vertices)
	return Polygon{
		Name:  name,
		Ring:  ring,
		Bound: ring.Bound(),
	}, nil
}

// Vertices returns the ring in load order.
func (p Polygon) Vertices() []Vertex {
	return p.Ring
}

// Result is the outcome of one membership evaluation.
type Result struct {
	Zone    string `json:"zone,omitempty"`
	Matched bool   `json:"matched"`
}

// None is the unmatched result.
var None = Result{}

// Match builds a matched result.
func Match(name string) Result {
	return Result{Zone: name, Matched: true}
}

// String returns the zone name, or "None" when unmatched.
func (r Result) String() string {
	if !r.Matched {
		return NoneName
	}
	return r.Zone
}
