// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"time"
)

const (
	Valid = "A"
	Void  = "V"
)

// Fix represents a single GPS fix suitable for JSON and MQTT.
type Fix struct {
	Timestamp  time.Time `json:"timestamp"`   // UTC
	Latitude   float64   `json:"lat"`         // decimal degrees
	Longitude  float64   `json:"lon"`         // decimal degrees
	SpeedKnots float64   `json:"speed_knots"` // speed over ground
	CourseDeg  float64   `json:"course_deg"`  // course over ground
	Validity   string    `json:"validity"`    // "A" (valid) / "V" (void)
}

// IsValid reports whether the receiver flagged the fix as usable. An empty
// validity is accepted for producers that do not set it.
func (f Fix) IsValid() bool {
	return f.Validity == Valid || f.Validity == ""
}

func (f Fix) String() string {
	return fmt.Sprintf("%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s",
		f.Timestamp.Format(time.RFC3339), f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity)
}
