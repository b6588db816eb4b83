// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/relabs-tech/zone_tracker/internal/catalog"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/tracker"
)

// CheckOptions drive an offline evaluation.
type CheckOptions struct {
	Dataset   string
	Fields    catalog.Options
	OriginLat float64
	OriginLon float64
	Points    []geo.Origin // lat/lon pairs to evaluate
	Replay    string       // NMEA file, evaluated after Points
}

// RunZoneCheck loads a dataset, prints the load report and evaluates the
// given positions against it.
func RunZoneCheck(ctx context.Context, opts CheckOptions, w io.Writer) error {
	cat := catalog.New(opts.Fields)
	report, err := cat.Load(ctx, opts.Dataset)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, report.Summary())
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
		for _, d := range warn.Diagnostics {
			fmt.Fprintf(w, "    %s\n", d.Error())
		}
	}
	fmt.Fprintf(w, "zones: %s\n", strings.Join(cat.Snapshot().Names(), ", "))

	frame, err := geo.NewLocalXY(opts.OriginLat, opts.OriginLon)
	if err != nil {
		return err
	}
	tr := tracker.New(frame, cat, nil)
	tr.AddSink("stdout", tracker.SinkFunc(func(_ context.Context, s tracker.Signal) error {
		mark := " "
		if s.Changed {
			mark = "*"
		}
		_, err := fmt.Fprintf(w, "%s %.7f,%.7f  %s  -> %s\n", mark, s.Fix.Latitude, s.Fix.Longitude, s.Point, s.Payload)
		return err
	}))

	for _, p := range opts.Points {
		if _, err := tr.Process(ctx, gps.Fix{Latitude: p.Latitude, Longitude: p.Longitude, Validity: gps.Valid}); err != nil {
			fmt.Fprintf(w, "  %.7f,%.7f  rejected: %v\n", p.Latitude, p.Longitude, err)
		}
	}

	if opts.Replay != "" {
		src, closer, err := replaySource(opts.Replay)
		if err != nil {
			return err
		}
		defer closer.Close()
		err = pump(ctx, src, 0, func(fix gps.Fix) {
			if _, err := tr.Process(ctx, fix); err != nil {
				fmt.Fprintf(w, "  %.7f,%.7f  rejected: %v\n", fix.Latitude, fix.Longitude, err)
			}
		})
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	st := tr.State()
	fmt.Fprintf(w, "evaluated %d fixes, last zone %s\n", st.Evaluations, st.Zone)
	return nil
}
