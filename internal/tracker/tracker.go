// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracker turns a stream of GPS fixes into zone signals.
//
// A Tracker is driven by one goroutine (Run) and keeps the only mutable
// state of the pipeline: the phase, the last zone and the last fix. Every
// evaluated fix produces exactly one Signal to every sink, whether or not
// the zone changed.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/catalog"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/metrics"
	"github.com/relabs-tech/zone_tracker/internal/status"
	"github.com/relabs-tech/zone_tracker/internal/zone"
)

// Phase of the tracker.
type Phase int

const (
	// Uninitialized: no fix has been resolved against a frame yet.
	Uninitialized Phase = iota
	// Tracking: at least one fix has been evaluated.
	Tracking
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Tracking:
		return "tracking"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a copy of the tracker's view of the world.
type State struct {
	Phase       Phase       `json:"phase"`
	CurrentZone zone.Result `json:"-"`
	Zone        string      `json:"zone"`
	LastFix     *gps.Fix    `json:"last_fix,omitempty"`
	Evaluations uint64      `json:"evaluations"`
}

// Signal is emitted once per evaluated fix.
type Signal struct {
	Zone    zone.Result    `json:"-"`
	Payload string         `json:"zone"`    // zone name or "None"
	Changed bool           `json:"changed"` // differs from the previous signal
	Fix     gps.Fix        `json:"fix"`
	Point   geo.LocalPoint `json:"point"`
	At      time.Time      `json:"at"`
}

// Sink receives zone signals. Publish is called on the tracker goroutine
// and should not block for long.
type Sink interface {
	Publish(ctx context.Context, s Signal) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Signal) error

func (f SinkFunc) Publish(ctx context.Context, s Signal) error { return f(ctx, s) }

// Zones is the catalog as seen by the tracker.
type Zones interface {
	Snapshot() *catalog.Snapshot
}

// Outcome of one Process call. Resolved is false when the fix was void or
// arrived before the frame was anchored; no signal was emitted then.
type Outcome struct {
	Resolved bool
	Signal   Signal
}

type namedSink struct {
	name string
	sink Sink
}

// Tracker consumes fixes serially and emits zone signals.
type Tracker struct {
	projector *geo.Projector
	zones     Zones
	board     *status.Board

	mu    sync.RWMutex
	state State
	sinks []namedSink

	now func() time.Time
}

// New wires a tracker. board may be nil.
func New(frame geo.OriginProvider, zones Zones, board *status.Board) *Tracker {
	return &Tracker{
		projector: geo.NewProjector(frame),
		zones:     zones,
		board:     board,
		state:     State{Phase: Uninitialized, CurrentZone: zone.None, Zone: zone.NoneName},
		now:       time.Now,
	}
}

// AddSink registers a sink under a name used in logs and metrics.
func (t *Tracker) AddSink(name string, s Sink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, namedSink{name: name, sink: s})
	t.mu.Unlock()
}

// State returns a snapshot of the tracker state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	if s.LastFix != nil {
		f := *s.LastFix
		s.LastFix = &f
	}
	return s
}

// Process evaluates one fix. Void fixes and fixes that arrive before the
// frame is anchored leave the state untouched and return Resolved=false
// with a nil error. Only a fix the projector rejects as out of range is an
// error.
func (t *Tracker) Process(ctx context.Context, fix gps.Fix) (Outcome, error) {
	if !fix.IsValid() {
		metrics.Fixes.WithLabelValues("invalid").Inc()
		log.Debug().Str("validity", fix.Validity).Msg("Void fix dropped")
		return Outcome{}, nil
	}

	pt, err := t.projector.Project(fix.Latitude, fix.Longitude)
	if errors.Is(err, geo.ErrUninitializedFrame) {
		metrics.Fixes.WithLabelValues("unresolved").Inc()
		t.setStatus(status.Warn, status.AwaitingFrame)
		log.Debug().Float64("lat", fix.Latitude).Float64("lon", fix.Longitude).Msg("Fix before frame origin, not evaluated")
		return Outcome{}, nil
	}
	if err != nil {
		metrics.Fixes.WithLabelValues("invalid").Inc()
		return Outcome{}, fmt.Errorf("project fix: %w", err)
	}

	snap := t.zones.Snapshot()
	start := time.Now()
	res := snap.Locate(pt)
	metrics.LocateDuration.Observe(time.Since(start).Seconds())

	t.mu.Lock()
	changed := t.state.Phase != Tracking || t.state.CurrentZone != res
	last := fix
	t.state.Phase = Tracking
	t.state.CurrentZone = res
	t.state.Zone = res.String()
	t.state.LastFix = &last
	t.state.Evaluations++
	sinks := t.sinks
	t.mu.Unlock()

	sig := Signal{
		Zone:    res,
		Payload: res.String(),
		Changed: changed,
		Fix:     fix,
		Point:   pt,
		At:      t.now(),
	}

	metrics.Fixes.WithLabelValues("resolved").Inc()
	metrics.Signals.WithLabelValues(sig.Payload).Inc()

	ev := log.Debug().Str("zone", sig.Payload).Float64("x", pt.X).Float64("y", pt.Y)
	if changed {
		ev = log.Info().Str("zone", sig.Payload).Float64("x", pt.X).Float64("y", pt.Y)
	}
	ev.Bool("changed", changed).Msg("Zone evaluated")

	for _, ns := range sinks {
		if err := ns.sink.Publish(ctx, sig); err != nil {
			metrics.SinkErrors.WithLabelValues(ns.name).Inc()
			log.Warn().Err(err).Str("sink", ns.name).Msg("Zone signal delivery failed")
		}
	}

	if snap.Len() == 0 {
		t.setStatus(status.Warn, status.NoZones)
	} else {
		t.clearStatus()
	}

	return Outcome{Resolved: true, Signal: sig}, nil
}

// Run processes fixes in arrival order until ctx is done or fixes is
// closed.
func (t *Tracker) Run(ctx context.Context, fixes <-chan gps.Fix) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fix, ok := <-fixes:
			if !ok {
				return nil
			}
			if _, err := t.Process(ctx, fix); err != nil {
				log.Warn().Err(err).Float64("lat", fix.Latitude).Float64("lon", fix.Longitude).Msg("Fix rejected")
			}
		}
	}
}

func (t *Tracker) setStatus(sev status.Severity, msg string) {
	if t.board != nil {
		t.board.Set(sev, msg)
	}
}

// clearStatus replaces the transient tracker messages with OK once fixes
// resolve again. Load results stay until the next event.
func (t *Tracker) clearStatus() {
	if t.board == nil {
		return
	}
	switch t.board.String() {
	case status.NoMessages, status.AwaitingFrame, status.NoZones:
		t.board.Info(status.OK)
	}
}
