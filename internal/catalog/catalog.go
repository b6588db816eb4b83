// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package catalog loads zone polygons from a dataset file and publishes
// them as immutable snapshots.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/dataset"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/metrics"
	"github.com/relabs-tech/zone_tracker/internal/zone"
)

// Options names the attribute fields a load reads.
type Options struct {
	NameField      string  // primary zone name
	AltNameField   string  // used when the primary name is empty
	GeometryField  string  // ring text
	DriftThreshold float64 // skipped/total pair ratio that raises FormatDriftWarning
}

// DefaultOptions returns the field names used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		NameField:      "NAME",
		AltNameField:   "ALT_NAME",
		GeometryField:  "WKT",
		DriftThreshold: 0.1,
	}
}

// Snapshot is one fully built zone set. It is never modified after it has
// been published.
type Snapshot struct {
	Zones    []zone.Polygon
	Source   string
	Version  uint64
	LoadedAt time.Time
}

// Len is nil-safe.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Zones)
}

// Names lists zone names in load order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Zones))
	for i, z := range s.Zones {
		names[i] = z.Name
	}
	return names
}

// Locate runs the membership test against this snapshot. A nil snapshot
// contains nothing.
func (s *Snapshot) Locate(pt geo.LocalPoint) zone.Result {
	if s == nil {
		return zone.None
	}
	return zone.Locate(pt, s.Zones)
}

// Catalog holds the current snapshot. Loads are serialised; readers never
// block and always see a complete snapshot.
type Catalog struct {
	opts    Options
	loadMu  sync.Mutex
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// New returns an empty catalog.
func New(opts Options) *Catalog {
	def := DefaultOptions()
	if opts.NameField == "" {
		opts.NameField = def.NameField
	}
	if opts.AltNameField == "" {
		opts.AltNameField = def.AltNameField
	}
	if opts.GeometryField == "" {
		opts.GeometryField = def.GeometryField
	}
	if opts.DriftThreshold <= 0 {
		opts.DriftThreshold = def.DriftThreshold
	}
	return &Catalog{opts: opts}
}

// Snapshot returns the current zone set, or nil before the first
// successful load.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Load reads path and, on success, replaces the current snapshot in one
// step. On failure the previous snapshot stays in place.
func (c *Catalog) Load(ctx context.Context, path string) (LoadReport, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	start := time.Now()
	report := LoadReport{Path: path}

	layer, err := dataset.Open(path)
	if err != nil {
		metrics.CatalogLoads.WithLabelValues("open_error").Inc()
		return report, &DatasetOpenError{Path: path, Err: err}
	}
	defer layer.Close()
	report.Layer = layer.Name()

	var zones []zone.Polygon
	for layer.Next() {
		if err := ctx.Err(); err != nil {
			metrics.CatalogLoads.WithLabelValues("cancelled").Inc()
			return report, fmt.Errorf("load %s: %w", path, err)
		}
		rec := layer.Record()
		report.Records++

		text, ok := rec.Field(c.opts.GeometryField)
		if !ok || text == "" {
			report.Skipped++
			continue
		}

		name := c.zoneName(rec)
		ring := zone.ParseRing(text)
		report.Pairs += ring.Pairs
		report.BadPairs += len(ring.Diagnostics)

		poly, err := zone.NewPolygon(name, ring.Vertices)
		if err != nil {
			c.warn(&report, Warning{
				Kind:        RecordParseWarning,
				Record:      rec.Index,
				Zone:        name,
				Dropped:     true,
				Message:     fmt.Sprintf("%d of %d pairs usable: %v", len(ring.Vertices), ring.Pairs, err),
				Diagnostics: ring.Diagnostics,
			})
			continue
		}
		if !ring.Clean() {
			c.warn(&report, Warning{
				Kind:        RecordParseWarning,
				Record:      rec.Index,
				Zone:        name,
				Message:     fmt.Sprintf("skipped %d of %d pairs", len(ring.Diagnostics), ring.Pairs),
				Diagnostics: ring.Diagnostics,
			})
		}
		zones = append(zones, poly)
	}
	if err := layer.Err(); err != nil {
		metrics.CatalogLoads.WithLabelValues("read_error").Inc()
		return report, fmt.Errorf("read %s: %w", path, err)
	}

	if report.Pairs > 0 {
		ratio := float64(report.BadPairs) / float64(report.Pairs)
		if ratio > c.opts.DriftThreshold {
			c.warn(&report, Warning{
				Kind:    FormatDriftWarning,
				Record:  -1,
				Message: fmt.Sprintf("%d of %d coordinate pairs skipped (%.0f%%)", report.BadPairs, report.Pairs, ratio*100),
			})
		}
	}
	if len(zones) == 0 {
		c.warn(&report, Warning{
			Kind:    EmptyCatalogWarning,
			Record:  -1,
			Message: fmt.Sprintf("no usable zones in %d records", report.Records),
		})
	}

	snap := &Snapshot{
		Zones:    zones,
		Source:   path,
		Version:  c.version.Add(1),
		LoadedAt: time.Now(),
	}
	c.current.Store(snap)

	report.Zones = len(zones)
	report.Version = snap.Version
	report.Duration = time.Since(start)

	metrics.CatalogLoads.WithLabelValues("ok").Inc()
	metrics.CatalogZones.Set(float64(len(zones)))
	metrics.RecordWarnings.Add(float64(report.RecordWarnings()))

	log.Info().
		Str("path", path).
		Int("records", report.Records).
		Int("zones", report.Zones).
		Int("skipped", report.Skipped).
		Int("warnings", len(report.Warnings)).
		Uint64("version", snap.Version).
		Dur("took", report.Duration).
		Msg("Zone catalog loaded")

	return report, nil
}

func (c *Catalog) zoneName(rec dataset.Record) string {
	if v, _ := rec.Field(c.opts.NameField); v != "" {
		return v
	}
	if v, _ := rec.Field(c.opts.AltNameField); v != "" {
		return v
	}
	return fmt.Sprintf("zone-%d", rec.Index)
}

func (c *Catalog) warn(r *LoadReport, w Warning) {
	r.Warnings = append(r.Warnings, w)
	ev := log.Warn().Str("kind", w.Kind.String())
	if w.Record >= 0 {
		ev = ev.Int("record", w.Record).Str("zone", w.Zone).Bool("dropped", w.Dropped)
	}
	for i, d := range w.Diagnostics {
		if i == 3 {
			ev = ev.Int("more_diagnostics", len(w.Diagnostics)-i)
			break
		}
		ev = ev.Str(fmt.Sprintf("pair_%d", d.Pair), d.Token+": "+d.Reason)
	}
	ev.Msg(w.Message)
}
