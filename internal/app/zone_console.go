// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/bus"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/gps"
)

// consolePrinter formats zone signals and fixes one per line.
type consolePrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (p *consolePrinter) zone(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	marker := " "
	if name != p.last {
		marker = "*"
	}
	p.last = name
	fmt.Fprintf(p.w, "[ZONE]%s %s\n", marker, name)
}

func (p *consolePrinter) fix(f gps.Fix) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[GPS ]  %s\n", f)
}

// RunZoneConsole prints zone signals and fixes from MQTT until ctx is done.
func RunZoneConsole(ctx context.Context, w io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Close()

	p := &consolePrinter{w: w}
	if err := client.SubscribeZone(cfg.TopicZone, p.zone); err != nil {
		return err
	}
	if err := client.SubscribeFixes(cfg.TopicGPS, p.fix); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("Console shutting down")
	return nil
}
