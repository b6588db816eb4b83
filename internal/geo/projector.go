// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package geo

import "fmt"

// LocalPoint is a position in the local planar frame, metres east (X) and
// north (Y) of the origin.
type LocalPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p LocalPoint) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Projector turns geodetic coordinates into LocalPoints through an
// OriginProvider it does not own.
type Projector struct {
	frame OriginProvider
}

// NewProjector wraps frame.
func NewProjector(frame OriginProvider) *Projector {
	return &Projector{frame: frame}
}

// Project converts lat/lon degrees to the local frame. It fails with
// ErrUninitializedFrame until the provider has an origin.
func (p *Projector) Project(lat, lon float64) (LocalPoint, error) {
	if p.frame == nil || !p.frame.Initialized() {
		return LocalPoint{}, ErrUninitializedFrame
	}
	if !validLatLon(lat, lon) {
		return LocalPoint{}, fmt.Errorf("invalid fix %.7f,%.7f", lat, lon)
	}
	x, y := p.frame.ToLocalXY(lat, lon)
	return LocalPoint{X: x, Y: y}, nil
}
