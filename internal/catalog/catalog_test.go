package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/zone"
)

type feature struct {
	name, alt, wkt string
	noWKT          bool
}

func writeGeoJSON(t *testing.T, dir, file string, feats []feature) string {
	t.Helper()
	type jsonFeature struct {
		Type       string                 `json:"type"`
		Geometry   map[string]interface{} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	fc := struct {
		Type     string        `json:"type"`
		Features []jsonFeature `json:"features"`
	}{Type: "FeatureCollection"}

	for _, f := range feats {
		props := map[string]interface{}{"NAME": f.name, "ALT_NAME": f.alt}
		if !f.noWKT {
			props["WKT"] = f.wkt
		}
		fc.Features = append(fc.Features, jsonFeature{
			Type:       "Feature",
			Geometry:   map[string]interface{}{"type": "Point", "coordinates": []float64{0, 0}},
			Properties: props,
		})
	}
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeShapefile(t *testing.T, dir, file string, feats []feature) string {
	t.Helper()
	path := filepath.Join(dir, file)
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("NAME", 40),
		shp.StringField("ALT_NAME", 40),
		shp.StringField("WKT", 250),
	}))
	for _, f := range feats {
		n := int(w.Write(&shp.Point{}))
		require.NoError(t, w.WriteAttribute(n, 0, f.name))
		require.NoError(t, w.WriteAttribute(n, 1, f.alt))
		require.NoError(t, w.WriteAttribute(n, 2, f.wkt))
	}
	w.Close()

	// the writer names the attribute table <base>dbf, without the dot
	base := strings.TrimSuffix(path, filepath.Ext(path))
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
	return path
}

func TestLoad_AlphaSquare(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "alpha.geojson", []feature{
		{name: "Alpha", wkt: "0 0, 10 0, 10 10, 0 10"},
	})
	c := New(DefaultOptions())
	assert.Nil(t, c.Snapshot())

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Zones)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, "Loaded 1 zones from alpha.geojson", report.Summary())

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, zone.Match("Alpha"), snap.Locate(geo.LocalPoint{X: 5, Y: 5}))
	assert.Equal(t, zone.None, snap.Locate(geo.LocalPoint{X: 15, Y: 15}))
}

func TestLoad_MalformedRecordsShapefile(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "mixed.shp", []feature{
		{name: "Alpha", wkt: "0 0, 10 0, 10 10, 0 10"},
		{name: "Broken1", wkt: "0,0;10,0;10,10"},
		{name: "Bravo", wkt: "POLYGON((20 0, 30 0, 30 10, 20 10))"},
		{name: "Broken2", wkt: "1 1, 2 2"},
		{name: "Charlie", wkt: "40 0, 50 0, 45 10"},
	})
	c := New(DefaultOptions())

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.Zones)
	assert.Equal(t, 2, report.RecordWarnings())
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, c.Snapshot().Names())

	for _, w := range report.Warnings {
		if w.Kind == RecordParseWarning {
			assert.True(t, w.Dropped)
			assert.Contains(t, []string{"Broken1", "Broken2"}, w.Zone)
		}
	}
}

func TestLoad_MalformedRecordsGeoJSON(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "mixed.geojson", []feature{
		{name: "Alpha", wkt: "0 0, 10 0, 10 10, 0 10"},
		{name: "Broken1", wkt: "0,0;10,0;10,10"},
		{name: "Bravo", wkt: "POLYGON((20 0, 30 0, 30 10, 20 10))"},
		{name: "Broken2", wkt: "1 1, 2 2"},
		{name: "Charlie", wkt: "40 0, 50 0, 45 10"},
	})
	c := New(DefaultOptions())

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.Zones)
	assert.Equal(t, 2, report.RecordWarnings())
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, c.Snapshot().Names())
}

func TestLoad_NameFallbackAndSkippedRecords(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "names.geojson", []feature{
		{name: "", alt: "Secondary", wkt: "0 0, 1 0, 1 1"},
		{name: "NoRing", noWKT: true},
		{name: "EmptyRing", wkt: ""},
		{name: "", alt: "", wkt: "0 0, 1 0, 1 1"},
	})
	c := New(DefaultOptions())

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, []string{"Secondary", "zone-3"}, c.Snapshot().Names())
}

func TestLoad_CustomFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},
		 "properties":{"designation":"Runway","ring":"(0 0, 5 0, 5 5)"}}]}`), 0o644))

	c := New(Options{NameField: "label", AltNameField: "designation", GeometryField: "ring"})
	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Zones)
	assert.Equal(t, []string{"Runway"}, c.Snapshot().Names())
}

func TestLoad_PartialRingKeptWithWarning(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "partial.geojson", []feature{
		{name: "Alpha", wkt: "0 0, 10 0, 10,5, 10 10, 0 10"},
	})
	c := New(Options{DriftThreshold: 0.9})

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Zones)
	require.Equal(t, 1, report.RecordWarnings())
	assert.False(t, report.Warnings[0].Dropped)
	assert.Len(t, report.Warnings[0].Diagnostics, 2)
	assert.False(t, report.Has(FormatDriftWarning))
	assert.Len(t, c.Snapshot().Zones[0].Vertices(), 4)
}

func TestLoad_FormatDrift(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "drift.geojson", []feature{
		{name: "A", wkt: "0 0, 1 0, 1 1, 0,5 1,5"},
		{name: "B", wkt: "0 0, 1 0, 1 1"},
	})
	c := New(DefaultOptions())

	report, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, report.Has(FormatDriftWarning))
	assert.Equal(t, 2, report.Zones)
}

func TestLoad_EmptyCatalog(t *testing.T) {
	dir := t.TempDir()
	good := writeGeoJSON(t, dir, "good.geojson", []feature{{name: "A", wkt: "0 0, 1 0, 1 1"}})
	empty := writeGeoJSON(t, dir, "empty.geojson", []feature{{name: "A", wkt: "junk"}})
	c := New(DefaultOptions())

	_, err := c.Load(context.Background(), good)
	require.NoError(t, err)

	report, err := c.Load(context.Background(), empty)
	require.NoError(t, err, "zero zones is not an error")
	assert.True(t, report.Has(EmptyCatalogWarning))
	assert.Equal(t, 0, report.Zones)
	assert.Equal(t, "No zones loaded from empty.geojson", report.Summary())
	assert.Equal(t, 0, c.Snapshot().Len(), "an empty load still replaces the set")
}

func TestLoad_OpenErrorKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	good := writeGeoJSON(t, dir, "good.geojson", []feature{{name: "A", wkt: "0 0, 1 0, 1 1"}})
	c := New(DefaultOptions())

	_, err := c.Load(context.Background(), good)
	require.NoError(t, err)
	before := c.Snapshot()

	for _, bad := range []string{filepath.Join(dir, "missing.geojson"), filepath.Join(dir, "zones.csv")} {
		_, err = c.Load(context.Background(), bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDatasetOpen)
		var openErr *DatasetOpenError
		require.ErrorAs(t, err, &openErr)
		assert.Equal(t, bad, openErr.Path)
		assert.Same(t, before, c.Snapshot())
	}
}

func TestLoad_Cancelled(t *testing.T) {
	dir := t.TempDir()
	good := writeGeoJSON(t, dir, "good.geojson", []feature{{name: "A", wkt: "0 0, 1 0, 1 1"}})
	c := New(DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Load(ctx, good)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, c.Snapshot())
}

func TestLoad_Idempotent(t *testing.T) {
	path := writeShapefile(t, t.TempDir(), "zones.shp", []feature{
		{name: "A", wkt: "0 0, 10 0, 10 10, 0 10"},
		{name: "B", wkt: "5 5, 15 5, 15 15, 5 15"},
		{name: "C", wkt: "bad"},
	})
	c := New(DefaultOptions())

	r1, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	first := c.Snapshot()

	r2, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	second := c.Snapshot()

	assert.Equal(t, r1.Zones, r2.Zones)
	assert.Equal(t, first.Zones, second.Zones)
	assert.Equal(t, first.Version+1, second.Version)
}

func TestLoad_IdempotentGeoJSON(t *testing.T) {
	path := writeGeoJSON(t, t.TempDir(), "zones.geojson", []feature{
		{name: "A", wkt: "0 0, 10 0, 10 10, 0 10"},
		{name: "B", wkt: "5 5, 15 5, 15 15, 5 15"},
		{name: "C", wkt: "bad"},
	})
	c := New(DefaultOptions())

	r1, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	first := c.Snapshot()

	r2, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	second := c.Snapshot()

	assert.Equal(t, 2, r1.Zones)
	assert.Equal(t, r1.Zones, r2.Zones)
	assert.Equal(t, first.Names(), second.Names())
	assert.Equal(t, first.Zones, second.Zones)
	assert.Equal(t, first.Version+1, second.Version)
}

func TestLoad_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	dir := t.TempDir()
	small := writeGeoJSON(t, dir, "small.geojson", []feature{{name: "A", wkt: "0 0, 10 0, 10 10, 0 10"}})
	big := writeGeoJSON(t, dir, "big.geojson", []feature{
		{name: "A", wkt: "0 0, 10 0, 10 10, 0 10"},
		{name: "B", wkt: "20 0, 30 0, 30 10, 20 10"},
		{name: "C", wkt: "40 0, 50 0, 50 10, 40 10"},
	})
	c := New(DefaultOptions())
	_, err := c.Load(context.Background(), small)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := c.Snapshot().Len()
				if n != 1 && n != 3 {
					t.Errorf("observed partial snapshot with %d zones", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		path := small
		if i%2 == 0 {
			path = big
		}
		_, err := c.Load(context.Background(), path)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestSnapshot_NilSafe(t *testing.T) {
	var s *Snapshot
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Names())
	assert.Equal(t, zone.None, s.Locate(geo.LocalPoint{}))
}
