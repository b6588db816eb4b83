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
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/bus"
	"github.com/relabs-tech/zone_tracker/internal/catalog"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/display"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/status"
	"github.com/relabs-tech/zone_tracker/internal/tracker"
	"github.com/relabs-tech/zone_tracker/internal/web"
)

// MonitorOptions are the command-line settings of the zone monitor that are
// not part of the config file.
type MonitorOptions struct {
	ConfigPath string // rewritten when the dataset changes over MQTT; empty disables
	StaticDir  string // served at / by the web server
}

// Loader loads datasets into the catalog and reports the outcome on the
// status board. Loads are serialised by the catalog.
type Loader struct {
	cat   *catalog.Catalog
	board *status.Board
}

func NewLoader(cat *catalog.Catalog, board *status.Board) *Loader {
	return &Loader{cat: cat, board: board}
}

// Load reads path. On failure the previous zones stay active.
func (l *Loader) Load(ctx context.Context, path string) (catalog.LoadReport, error) {
	if path == "" {
		l.board.Warn(status.NoZones)
		return catalog.LoadReport{}, errors.New("no dataset path configured")
	}
	report, err := l.cat.Load(ctx, path)
	switch {
	case err != nil:
		l.board.Error("Load failed: " + err.Error())
		log.Error().Err(err).Str("path", path).Msg("Zone catalog load failed, keeping previous zones")
	case report.Zones == 0 || len(report.Warnings) > 0:
		l.board.Warn(report.Summary())
	default:
		l.board.Info(report.Summary())
	}
	return report, err
}

// RunZoneMonitor wires the catalog, the frame, the tracker and its sinks,
// then processes fixes until ctx is done.
func RunZoneMonitor(ctx context.Context, opts MonitorOptions) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	board := status.NewBoard()
	cat := catalog.New(catalog.Options{
		NameField:      cfg.NameField,
		AltNameField:   cfg.AltNameField,
		GeometryField:  cfg.GeometryField,
		DriftThreshold: cfg.DriftThreshold,
	})
	loader := NewLoader(cat, board)
	// a failed first load is not fatal: a dataset can still arrive over
	// MQTT or SIGHUP
	loader.Load(ctx, cfg.DatasetPath)

	frame, err := setupFrame(cfg)
	if err != nil {
		return err
	}
	gate := originGate{frame: frame, auto: cfg.OriginMode == config.OriginAuto}

	tr := tracker.New(frame, cat, board)

	// ---- MQTT: zone output, origin and dataset input ----
	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDMonitor)
	if err != nil {
		return err
	}
	defer client.Close()
	tr.AddSink("mqtt", bus.NewZonePublisher(client, cfg.TopicZone))

	if cfg.OriginMode == config.OriginTopic {
		if err := client.SubscribeOrigin(cfg.TopicOrigin, func(o geo.Origin) {
			if err := frame.SetOrigin(o.Latitude, o.Longitude); err != nil {
				if errors.Is(err, geo.ErrOriginAlreadySet) {
					cur, _ := frame.Origin()
					log.Warn().Interface("current", cur).Interface("offered", o).Msg("Origin already set for this session, ignored")
					return
				}
				log.Warn().Err(err).Msg("Origin rejected")
				return
			}
			log.Info().Float64("lat", o.Latitude).Float64("lon", o.Longitude).Msg("Local frame anchored from origin topic")
		}); err != nil {
			return err
		}
	}

	reloads := make(chan string, 1)
	if cfg.TopicDataset != "" {
		if err := client.SubscribeDataset(cfg.TopicDataset, func(path string) {
			select {
			case reloads <- path:
			default:
				log.Warn().Str("path", path).Msg("Dataset reload already pending, request dropped")
			}
		}); err != nil {
			return err
		}
	}

	// ---- Web ----
	errCh := make(chan error, 4)
	if cfg.WebServerPort > 0 {
		srv := web.New(tr, cat, board, opts.StaticDir)
		tr.AddSink("web", srv)
		go func() {
			if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.WebServerPort)); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	// ---- OLED ----
	if cfg.DisplayI2CBus != "" {
		oled, err := display.OpenOLED(cfg.DisplayI2CBus)
		if err != nil {
			log.Warn().Err(err).Msg("OLED unavailable, continuing without display")
		} else {
			defer oled.Close()
			badge := display.NewBadge(oled, board.String)
			tr.AddSink("oled", badge)
			go badge.Run(ctx, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)
		}
	}

	// ---- Fix input ----
	queue := make(chan gps.Fix, cfg.FixQueueSize)
	accept := func(fix gps.Fix) {
		gate.admit(fix)
		bus.Enqueue(queue, fix)
	}
	blocking := func(fix gps.Fix) {
		gate.admit(fix)
		select {
		case queue <- fix:
		case <-ctx.Done():
		}
	}

	switch cfg.FixSource {
	case config.SourceMQTT:
		if err := client.SubscribeFixes(cfg.TopicGPS, accept); err != nil {
			return err
		}
	case config.SourceSerial:
		src, err := gps.OpenSerial(cfg.GPSSerialPort, uint(cfg.GPSBaudRate))
		if err != nil {
			return err
		}
		defer src.Close()
		log.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port opened")
		go func() {
			if err := pump(ctx, src, 0, accept); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("GPS serial: %w", err)
			}
		}()
	case config.SourceReplay:
		src, closer, err := replaySource(cfg.ReplayFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		go func() {
			err := pump(ctx, src, time.Duration(cfg.ReplayInterval)*time.Millisecond, blocking)
			if errors.Is(err, io.EOF) {
				log.Info().Str("file", cfg.ReplayFile).Msg("Replay finished")
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("replay: %w", err)
			}
		}()
	}

	// ---- Reloads ----
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				path := config.Get().DatasetPath
				log.Info().Str("path", path).Msg("SIGHUP, reloading zones")
				loader.Load(ctx, path)
			case path := <-reloads:
				if _, err := loader.Load(ctx, path); err != nil {
					continue
				}
				next := config.Update(func(c *config.Config) { c.DatasetPath = path })
				if opts.ConfigPath != "" {
					if err := next.Save(opts.ConfigPath); err != nil {
						log.Warn().Err(err).Str("config", opts.ConfigPath).Msg("Could not persist dataset path")
					}
				}
			}
		}
	}()

	log.Info().
		Str("fix_source", cfg.FixSource).
		Str("origin_mode", cfg.OriginMode).
		Int("zones", cat.Snapshot().Len()).
		Msg("Zone monitor running")

	trackerDone := make(chan error, 1)
	go func() { trackerDone <- tr.Run(ctx, queue) }()

	select {
	case err := <-errCh:
		return err
	case err := <-trackerDone:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
