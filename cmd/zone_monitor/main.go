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

	ConfigFile string `short:"c" long:"config"  env:"ZONE_CONFIG"  description:"Path to configuration file (KEY=VALUE or .yaml)" default:"zone_config.txt"`
	Dataset    string `short:"d" long:"dataset" env:"ZONE_DATASET" description:"Zone dataset, overrides DATASET_PATH"`
	StaticDir  string `long:"static"            env:"ZONE_STATIC"  description:"Directory served at / by the web server"`
	NoPersist  bool   `long:"no-persist"                           description:"Do not write dataset changes back to the config file"`
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
	log.Info().Str("config", opts.ConfigFile).Msg("Starting zone monitor")

	if err := config.InitGlobal(opts.ConfigFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Dataset != "" {
		config.Update(func(c *config.Config) { c.DatasetPath = opts.Dataset })
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitorOpts := app.MonitorOptions{StaticDir: opts.StaticDir}
	if !opts.NoPersist {
		monitorOpts.ConfigPath = opts.ConfigFile
	}
	if err := app.RunZoneMonitor(ctx, monitorOpts); err != nil {
		log.Fatal().Err(err).Msg("Zone monitor failed")
	}
	log.Info().Msg("Zone monitor stopped")
}
