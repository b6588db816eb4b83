// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"time"

	"github.com/relabs-tech/zone_tracker/internal/geo"
)

// knotsPerMS converts metres per second to knots.
const knotsPerMS = 1.943844

type mockSource struct {
	frame  *geo.LocalXY
	radius float64       // metres
	period time.Duration // one full circle
	start  time.Time
	now    func() time.Time
}

// NewMockSource creates a mock fix source that drives a circle of the given
// radius around the frame origin, one lap per period.
func NewMockSource(frame *geo.LocalXY, radius float64, period time.Duration) Source {
	if period <= 0 {
		period = time.Minute
	}
	return &mockSource{frame: frame, radius: radius, period: period, start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (Fix, error) {
	now := m.now()
	phase := 2 * math.Pi * now.Sub(m.start).Seconds() / m.period.Seconds()

	x := m.radius * math.Cos(phase)
	y := m.radius * math.Sin(phase)
	lat, lon, err := m.frame.FromLocalXY(x, y)
	if err != nil {
		return Fix{}, err
	}

	// counter-clockwise: heading is the tangent, measured clockwise from north
	course := math.Mod(-phase*180/math.Pi, 360)
	if course < 0 {
		course += 360
	}
	speed := 2 * math.Pi * m.radius / m.period.Seconds()

	return Fix{
		Timestamp:  now.UTC(),
		Latitude:   lat,
		Longitude:  lon,
		SpeedKnots: speed * knotsPerMS,
		CourseDeg:  course,
		Validity:   Valid,
	}, nil
}
