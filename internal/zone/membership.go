// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package zone

import (
	"github.com/paulmach/orb"

	"github.com/relabs-tech/zone_tracker/internal/geo"
)

// Contains runs a crossing-number test of pt against the implicitly closed
// ring.
//
// Boundary convention is half-open: an edge is crossed only when exactly
// one endpoint lies strictly above the horizontal ray through pt, and the
// crossing lies strictly to the right of pt. Points on left or bottom
// edges count as inside, points on right or top edges as outside. The
// answer for a given input never changes.
func (p Polygon) Contains(pt geo.LocalPoint) bool {
	if len(p.Ring) < MinVertices {
		return false
	}
	if !p.Bound.Contains(orb.Point{pt.X, pt.Y}) {
		return false
	}

	inside := false
	n := len(p.Ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := p.Ring[i][0], p.Ring[i][1]
		xj, yj := p.Ring[j][0], p.Ring[j][1]
		if (yi > pt.Y) == (yj > pt.Y) {
			continue
		}
		// yi != yj here, so the division is safe
		cross := xi + (pt.Y-yi)*(xj-xi)/(yj-yi)
		if pt.X < cross {
			inside = !inside
		}
	}
	return inside
}

// Locate returns the first zone, in slice order, that contains pt. Later
// matches are ignored. It never modifies zones.
func Locate(pt geo.LocalPoint, zones []Polygon) Result {
	for i := range zones {
		if zones[i].Contains(pt) {
			return Match(zones[i].Name)
		}
	}
	return None
}
