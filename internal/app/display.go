// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/zone_tracker/internal/bus"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/display"
)

// RunDisplay shows zone signals from MQTT on the OLED, for setups where
// the display sits on a different host than the monitor.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	oled, err := display.OpenOLED(cfg.DisplayI2CBus)
	if err != nil {
		return err
	}
	defer oled.Close()

	if err := showSplash(oled); err != nil {
		log.Warn().Err(err).Msg("Error showing splash")
	}

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Close()

	badge := display.NewBadge(oled, nil)
	if err := client.SubscribeZone(cfg.TopicZone, badge.SetZone); err != nil {
		return err
	}
	if err := client.SubscribeFixes(cfg.TopicGPS, badge.SetFix); err != nil {
		return err
	}

	log.Info().Msg("Display update loop started")
	badge.Run(ctx, time.Duration(cfg.DisplayUpdateInterval)*time.Millisecond)
	return nil
}

func showSplash(dev display.Panel) error {
	img := display.NewCanvas()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Zone Tracker"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("zones"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
