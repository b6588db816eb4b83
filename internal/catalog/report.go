// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/relabs-tech/zone_tracker/internal/zone"
)

// ErrDatasetOpen matches every *DatasetOpenError under errors.Is.
var ErrDatasetOpen = errors.New("dataset open failed")

// DatasetOpenError means the path did not resolve to a readable, supported
// dataset. The catalog keeps its previous contents.
type DatasetOpenError struct {
	Path string
	Err  error
}

func (e *DatasetOpenError) Error() string {
	return fmt.Sprintf("open dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetOpenError) Unwrap() error { return e.Err }

func (e *DatasetOpenError) Is(target error) bool { return target == ErrDatasetOpen }

// WarningKind tags a non-fatal load condition.
type WarningKind int

const (
	// RecordParseWarning: one record's ring text was malformed. The record
	// was dropped, or kept with some pairs skipped.
	RecordParseWarning WarningKind = iota
	// EmptyCatalogWarning: the load succeeded with zero usable zones.
	EmptyCatalogWarning
	// FormatDriftWarning: too many pairs were skipped across the dataset.
	FormatDriftWarning
)

func (k WarningKind) String() string {
	switch k {
	case RecordParseWarning:
		return "record_parse"
	case EmptyCatalogWarning:
		return "empty_catalog"
	case FormatDriftWarning:
		return "format_drift"
	default:
		return "unknown"
	}
}

// Warning is one non-fatal finding of a load.
type Warning struct {
	Kind        WarningKind
	Record      int    // record index, -1 for dataset-wide warnings
	Zone        string // zone name when known
	Dropped     bool   // record not added to the catalog
	Message     string
	Diagnostics []zone.Diagnostic
}

func (w Warning) String() string {
	if w.Record < 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: record %d (%s): %s", w.Kind, w.Record, w.Zone, w.Message)
}

// LoadReport summarises one load attempt.
type LoadReport struct {
	Path     string
	Layer    string
	Version  uint64
	Records  int // records visited
	Zones    int // zones added
	Skipped  int // records without ring text
	Pairs    int // coordinate pairs seen
	BadPairs int // coordinate pairs skipped
	Warnings []Warning
	Duration time.Duration
}

// RecordWarnings counts RecordParseWarnings.
func (r LoadReport) RecordWarnings() int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == RecordParseWarning {
			n++
		}
	}
	return n
}

// Has reports whether a warning of kind k was raised.
func (r LoadReport) Has(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Summary is the short status line for a successful load.
func (r LoadReport) Summary() string {
	if r.Zones == 0 {
		return fmt.Sprintf("No zones loaded from %s", filepath.Base(r.Path))
	}
	s := fmt.Sprintf("Loaded %d zones from %s", r.Zones, filepath.Base(r.Path))
	if n := len(r.Warnings); n > 0 {
		s += fmt.Sprintf(" (%d warnings)", n)
	}
	return s
}
