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

	ConfigFile string `short:"c" long:"config" env:"ZONE_CONFIG" description:"Path to configuration file" default:"zone_config.txt"`
	Bus        string `short:"b" long:"bus"                      description:"I2C bus name, overrides DISPLAY_I2C_BUS"`
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
	log.Info().Msg("Starting zone display (MQTT → OLED)")

	if err := config.InitGlobal(opts.ConfigFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Bus != "" {
		config.Update(func(c *config.Config) { c.DisplayI2CBus = opts.Bus })
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunDisplay(ctx); err != nil {
		log.Fatal().Err(err).Msg("Display failed")
	}
}
