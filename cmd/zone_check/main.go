// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/app"
	"github.com/relabs-tech/zone_tracker/internal/catalog"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Dataset   string   `short:"d" long:"dataset"    description:"Zone dataset (.shp or .geojson)" required:"true"`
	OriginLat float64  `long:"origin-lat"           description:"Frame origin latitude"  required:"true"`
	OriginLon float64  `long:"origin-lon"           description:"Frame origin longitude" required:"true"`
	Points    []string `short:"p" long:"point"      description:"Position to evaluate as lat,lon (repeatable)"`
	Replay    string   `short:"r" long:"replay"     description:"NMEA log to evaluate"`
	NameField string   `long:"name-field"           description:"Primary name attribute" default:"NAME"`
	AltField  string   `long:"alt-name-field"       description:"Fallback name attribute" default:"ALT_NAME"`
	GeomField string   `long:"geometry-field"       description:"Ring text attribute" default:"WKT"`
	Drift     float64  `long:"drift-threshold"      description:"Skipped pair ratio that raises a format drift warning" default:"0.1"`
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

	// keep stdout for results
	opts.Logger.Setup()

	points := make([]geo.Origin, 0, len(opts.Points))
	for _, p := range opts.Points {
		o, err := parsePoint(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		points = append(points, o)
	}

	err := app.RunZoneCheck(context.Background(), app.CheckOptions{
		Dataset: opts.Dataset,
		Fields: catalog.Options{
			NameField:      opts.NameField,
			AltNameField:   opts.AltField,
			GeometryField:  opts.GeomField,
			DriftThreshold: opts.Drift,
		},
		OriginLat: opts.OriginLat,
		OriginLon: opts.OriginLon,
		Points:    points,
		Replay:    opts.Replay,
	}, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Zone check failed")
	}
}

func parsePoint(s string) (geo.Origin, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Origin{}, fmt.Errorf("point %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Origin{}, fmt.Errorf("point %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Origin{}, fmt.Errorf("point %q: %w", s, err)
	}
	return geo.Origin{Latitude: lat, Longitude: lon}, nil
}
