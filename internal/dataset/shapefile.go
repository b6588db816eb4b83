// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

type shapefileLayer struct {
	name   string
	r      *shp.Reader
	fields []string
	cur    Record
	n      int
}

func openShapefile(path string) (Layer, error) {
	// go-shp opens the attribute table lazily and ignores a missing one
	dbf := strings.TrimSuffix(path, filepath.Ext(path)) + ".dbf"
	if _, err := os.Stat(dbf); err != nil {
		return nil, fmt.Errorf("attribute table: %w", err)
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}

	var names []string
	for _, f := range r.Fields() {
		names = append(names, f.String())
	}
	return &shapefileLayer{
		name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		r:      r,
		fields: names,
	}, nil
}

func (l *shapefileLayer) Name() string { return l.name }

func (l *shapefileLayer) Next() bool {
	if !l.r.Next() {
		return false
	}
	values := make(map[string]string, len(l.fields))
	for i, name := range l.fields {
		values[name] = l.r.Attribute(i)
	}
	l.cur = NewRecord(l.n, values)
	l.n++
	return true
}

func (l *shapefileLayer) Record() Record { return l.cur }

func (l *shapefileLayer) Err() error { return l.r.Err() }

func (l *shapefileLayer) Close() error { return l.r.Close() }
