// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/tracker"
	"github.com/relabs-tech/zone_tracker/internal/zone"
)

// Panel is the part of the SSD1306 driver the badge needs.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// StatusFunc supplies the status line at draw time.
type StatusFunc func() string

// Badge keeps the latest view and redraws a panel from it. It is a
// tracker sink: Publish only records the signal, Run does the drawing.
type Badge struct {
	panel  Panel
	status StatusFunc

	mu    sync.Mutex
	view  View
	dirty bool
}

// NewBadge wraps panel. status may be nil.
func NewBadge(panel Panel, status StatusFunc) *Badge {
	return &Badge{panel: panel, status: status, dirty: true}
}

// Publish implements tracker.Sink.
func (b *Badge) Publish(_ context.Context, s tracker.Signal) error {
	fix := s.Fix
	b.mu.Lock()
	b.view.Zone = s.Zone
	b.view.Fix = &fix
	b.view.Have = true
	b.dirty = true
	b.mu.Unlock()
	return nil
}

// SetZone records a zone name received without a fix, as on the display
// subscriber.
func (b *Badge) SetZone(name string) {
	res := zone.None
	if name != "" && name != zone.NoneName {
		res = zone.Match(name)
	}
	b.mu.Lock()
	if !b.view.Have || b.view.Zone != res {
		b.dirty = true
	}
	b.view.Zone = res
	b.view.Have = true
	b.mu.Unlock()
}

// SetFix records the latest fix for the coordinate lines.
func (b *Badge) SetFix(f gps.Fix) {
	b.mu.Lock()
	b.view.Fix = &f
	b.dirty = true
	b.mu.Unlock()
}

// View returns the current view, status line included.
func (b *Badge) View() View {
	b.mu.Lock()
	v := b.view
	b.mu.Unlock()
	if b.status != nil {
		v.Status = b.status()
	}
	return v
}

// Refresh redraws the panel if anything changed since the last draw or the
// status line moved.
func (b *Badge) Refresh() error {
	v := b.View()

	b.mu.Lock()
	changed := b.dirty || v.Status != b.view.Status
	b.dirty = false
	b.view.Status = v.Status
	b.mu.Unlock()

	if !changed {
		return nil
	}
	img := NewCanvas()
	Render(img, v)
	return b.panel.Draw(b.panel.Bounds(), img, image.Point{})
}

// Run refreshes the panel every interval until ctx is done.
func (b *Badge) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := b.Refresh(); err != nil {
			log.Warn().Err(err).Msg("Display update failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// OLED is an SSD1306 on an I2C bus.
type OLED struct {
	*ssd1306.Dev
	bus i2c.BusCloser
}

// OpenOLED initialises periph, opens the named I2C bus ("" for the first
// one) and the display at its default address.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info().Str("bus", busName).Msg("OLED display initialized")
	return &OLED{Dev: dev, bus: bus}, nil
}

// Close blanks the display and releases the bus.
func (o *OLED) Close() error {
	if err := o.Halt(); err != nil {
		log.Warn().Err(err).Msg("Display halt failed")
	}
	return o.bus.Close()
}
