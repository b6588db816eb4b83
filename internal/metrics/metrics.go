// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes Prometheus counters for fixes, zone signals and
// catalog loads.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Fixes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefix_fixes_total",
		Help: "Fixes handled by the tracker, by outcome (resolved, unresolved, invalid, dropped)",
	}, []string{"outcome"})
	Signals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefix_signals_total",
		Help: "Zone signals emitted, by zone name (None when unmatched)",
	}, []string{"zone"})
	SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefix_sink_errors_total",
		Help: "Failed zone signal deliveries, by sink",
	}, []string{"sink"})
	CatalogLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefix_catalog_loads_total",
		Help: "Catalog load attempts, by result",
	}, []string{"result"})
	CatalogZones = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonefix_catalog_zones",
		Help: "Zones in the current catalog snapshot",
	})
	RecordWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zonefix_record_warnings_total",
		Help: "Dataset records with malformed ring text",
	})
	LocateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zonefix_locate_duration_seconds",
		Help:    "Time spent in the membership test per fix",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
	})
)

func init() {
	prometheus.MustRegister(Fixes, Signals, SinkErrors, CatalogLoads, CatalogZones, RecordWarnings, LocateDuration)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
