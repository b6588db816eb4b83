// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dataset reads feature records from layered vector files. Only the
// attribute table of the first layer is exposed; zone geometry travels as
// ring text inside an attribute.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types with no reader.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Record is one feature's attributes. Field names are matched
// case-insensitively.
type Record struct {
	Index  int
	fields map[string]string
}

// NewRecord builds a record from name/value pairs.
func NewRecord(index int, fields map[string]string) Record {
	r := Record{Index: index, fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		r.fields[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return r
}

// Field returns the trimmed value of name and whether the field exists.
func (r Record) Field(name string) (string, bool) {
	v, ok := r.fields[strings.ToUpper(name)]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.Trim(v, "\x00")), true
}

// Layer iterates records in file order.
type Layer interface {
	Name() string
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Open picks a reader from the file extension.
func Open(path string) (Layer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return openShapefile(path)
	case ".geojson", ".json":
		return openGeoJSON(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}
