// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

type geojsonLayer struct {
	name     string
	features []*geojson.Feature
	cur      Record
	n        int
}

func openGeoJSON(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return &geojsonLayer{
		name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		features: fc.Features,
	}, nil
}

func (l *geojsonLayer) Name() string { return l.name }

func (l *geojsonLayer) Next() bool {
	if l.n >= len(l.features) {
		return false
	}
	f := l.features[l.n]
	values := make(map[string]string, len(f.Properties))
	for k, v := range f.Properties {
		values[k] = propertyString(v)
	}
	l.cur = NewRecord(l.n, values)
	l.n++
	return true
}

func (l *geojsonLayer) Record() Record { return l.cur }

func (l *geojsonLayer) Err() error { return nil }

func (l *geojsonLayer) Close() error { return nil }

func propertyString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
