// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/app"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string  `short:"c" long:"config" env:"ZONE_CONFIG" description:"Path to configuration file" default:"zone_config.txt"`
	Radius     float64 `short:"r" long:"radius"                   description:"Circle radius in metres, overrides MOCK_RADIUS_M"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()
	log.Info().Msg("Starting mock GPS producer")

	if err := config.InitGlobal(opts.ConfigFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Radius > 0 {
		config.Update(func(c *config.Config) { c.MockRadiusM = opts.Radius })
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockProducer(ctx); err != nil {
		log.Fatal().Err(err).Msg("Mock producer failed")
	}
}
