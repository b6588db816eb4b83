// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo converts geodetic fixes into the session's local planar frame.
//
// The local frame is a flat-earth approximation anchored at one origin:
// X grows east and Y grows north, both in metres. Zone vertices in the
// dataset are authored in this same frame, so every unit assumption of the
// system lives in ToLocalXY below.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// WGS84 ellipsoid.
const (
	equatorialRadius = 6378137.0
	flattening       = 1.0 / 298.257223563
	eccentricitySq   = 2*flattening - flattening*flattening
)

var (
	// ErrUninitializedFrame is returned when a projection is requested
	// before the origin is known.
	ErrUninitializedFrame = errors.New("local frame origin not initialized")

	// ErrOriginAlreadySet is returned when a different origin is offered
	// after the frame has been anchored.
	ErrOriginAlreadySet = errors.New("local frame origin already set")
)

// OriginProvider is the reference-frame collaborator the projector needs.
type OriginProvider interface {
	Initialized() bool
	ToLocalXY(lat, lon float64) (x, y float64)
}

// Origin is the geodetic anchor of a LocalXY frame.
type Origin struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type anchor struct {
	origin Origin
	// radii of curvature at the origin latitude, metres per radian
	rhoLat float64
	rhoLon float64
}

// LocalXY is an equirectangular local-XY frame on the WGS84 ellipsoid.
// The zero value is uninitialized; it is safe for concurrent use.
type LocalXY struct {
	a atomic.Pointer[anchor]
}

// NewLocalXY returns a frame already anchored at lat, lon.
func NewLocalXY(lat, lon float64) (*LocalXY, error) {
	f := &LocalXY{}
	if err := f.SetOrigin(lat, lon); err != nil {
		return nil, err
	}
	return f, nil
}

// SetOrigin anchors the frame. Only the first origin is accepted; offering
// the same origin again is a no-op.
func (f *LocalXY) SetOrigin(lat, lon float64) error {
	if !validLatLon(lat, lon) {
		return fmt.Errorf("invalid origin %.7f,%.7f", lat, lon)
	}

	latRad := lat * math.Pi / 180
	s := math.Sin(latRad)
	p := 1 - eccentricitySq*s*s
	next := &anchor{
		origin: Origin{Latitude: lat, Longitude: lon},
		rhoLat: equatorialRadius * (1 - eccentricitySq) / math.Pow(p, 1.5),
		rhoLon: equatorialRadius * math.Cos(latRad) / math.Sqrt(p),
	}

	if f.a.CompareAndSwap(nil, next) {
		return nil
	}
	if cur := f.a.Load(); cur.origin == next.origin {
		return nil
	}
	return ErrOriginAlreadySet
}

// Initialized reports whether an origin has been set.
func (f *LocalXY) Initialized() bool {
	return f.a.Load() != nil
}

// Origin returns the anchor and whether it is set.
func (f *LocalXY) Origin() (Origin, bool) {
	cur := f.a.Load()
	if cur == nil {
		return Origin{}, false
	}
	return cur.origin, true
}

// ToLocalXY converts degrees to metres east/north of the origin. It
// returns 0,0 when the frame is uninitialized; use Projector to get the
// error instead.
func (f *LocalXY) ToLocalXY(lat, lon float64) (x, y float64) {
	cur := f.a.Load()
	if cur == nil {
		return 0, 0
	}
	dLon := wrapDegrees(lon - cur.origin.Longitude)
	dLat := lat - cur.origin.Latitude
	x = dLon * math.Pi / 180 * cur.rhoLon
	y = dLat * math.Pi / 180 * cur.rhoLat
	return x, y
}

// FromLocalXY is the inverse of ToLocalXY.
func (f *LocalXY) FromLocalXY(x, y float64) (lat, lon float64, err error) {
	cur := f.a.Load()
	if cur == nil {
		return 0, 0, ErrUninitializedFrame
	}
	lat = cur.origin.Latitude + y/cur.rhoLat*180/math.Pi
	lon = cur.origin.Longitude
	if cur.rhoLon != 0 {
		lon = wrapDegrees(lon + x/cur.rhoLon*180/math.Pi)
	}
	return lat, lon, nil
}

// wrapDegrees folds an angle into [-180, 180).
func wrapDegrees(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
