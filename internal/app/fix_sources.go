// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
)

// originGate anchors the frame from the first valid fix when the origin
// mode is auto. It runs before a fix is queued, so that fix already sees an
// initialized frame.
type originGate struct {
	frame *geo.LocalXY
	auto  bool
}

func (g originGate) admit(fix gps.Fix) {
	if !g.auto || g.frame.Initialized() || !fix.IsValid() {
		return
	}
	if err := g.frame.SetOrigin(fix.Latitude, fix.Longitude); err != nil {
		if !errors.Is(err, geo.ErrOriginAlreadySet) {
			log.Warn().Err(err).Msg("Cannot anchor frame on fix")
		}
		return
	}
	log.Info().Float64("lat", fix.Latitude).Float64("lon", fix.Longitude).Msg("Local frame anchored on first fix")
}

// setupFrame builds the session frame for the configured origin mode.
func setupFrame(cfg *config.Config) (*geo.LocalXY, error) {
	frame := &geo.LocalXY{}
	if cfg.OriginMode == config.OriginFixed {
		if err := frame.SetOrigin(cfg.OriginLat, cfg.OriginLon); err != nil {
			return nil, fmt.Errorf("origin: %w", err)
		}
		log.Info().Float64("lat", cfg.OriginLat).Float64("lon", cfg.OriginLon).Msg("Local frame anchored from config")
	}
	return frame, nil
}

// pump reads src until it fails or ctx is done, handing each fix to emit.
// A positive interval paces the reads, as for replay files.
func pump(ctx context.Context, src gps.Source, interval time.Duration, emit func(gps.Fix)) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fix, err := src.Next()
		if err != nil {
			return err
		}
		emit(fix)
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
}

// replaySource opens an NMEA log.
func replaySource(path string) (gps.Source, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open replay file: %w", err)
	}
	return gps.NewDecoder(f), f, nil
}
