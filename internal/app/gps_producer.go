// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/bus"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
)

// fixPublisher publishes fixes to the GPS topic.
type fixPublisher struct {
	client *bus.Client
	topic  string
}

func (p fixPublisher) emit(ctx context.Context) func(gps.Fix) {
	return func(fix gps.Fix) {
		if err := p.client.PublishFix(ctx, p.topic, fix); err != nil {
			log.Warn().Err(err).Msg("GPS publish error")
			return
		}
		log.Debug().Stringer("fix", fix).Msg("Published GPS fix")
	}
}

// RunGPSProducer opens the GPS serial port, decodes RMC sentences and
// publishes each fix as JSON on TOPIC_GPS.
func RunGPSProducer(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Close()

	src, err := gps.OpenSerial(cfg.GPSSerialPort, uint(cfg.GPSBaudRate))
	if err != nil {
		return err
	}
	defer src.Close()
	log.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port opened")

	pub := fixPublisher{client: client, topic: cfg.TopicGPS}
	err = pump(ctx, src, 0, pub.emit(ctx))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunMockProducer publishes fixes driving a circle around the configured
// origin, for bench testing without a receiver.
func RunMockProducer(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	frame, err := geo.NewLocalXY(cfg.OriginLat, cfg.OriginLon)
	if err != nil {
		return err
	}

	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDGPS+"-mock")
	if err != nil {
		return err
	}
	defer client.Close()

	interval := time.Duration(cfg.MockInterval) * time.Millisecond
	src := gps.NewMockSource(frame, cfg.MockRadiusM, 60*interval)
	log.Info().
		Float64("lat", cfg.OriginLat).
		Float64("lon", cfg.OriginLon).
		Float64("radius_m", cfg.MockRadiusM).
		Str("topic", cfg.TopicGPS).
		Msg("Mock GPS producer started")

	pub := fixPublisher{client: client, topic: cfg.TopicGPS}
	err = pump(ctx, src, interval, pub.emit(ctx))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
