package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/zone_tracker/internal/catalog"
	"github.com/relabs-tech/zone_tracker/internal/config"
	"github.com/relabs-tech/zone_tracker/internal/geo"
	"github.com/relabs-tech/zone_tracker/internal/gps"
	"github.com/relabs-tech/zone_tracker/internal/status"
)

const squareGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},
  "properties":{"NAME":"Alpha","WKT":"POLYGON((-100 -100, 100 -100, 100 100, -100 100))"}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},
  "properties":{"NAME":"Broken","WKT":"1 1, 2 2"}}]}`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunZoneCheck(t *testing.T) {
	dataset := writeTemp(t, "zones.geojson", squareGeoJSON)
	replay := writeTemp(t, "drive.nmea",
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n")

	var out bytes.Buffer
	err := RunZoneCheck(context.Background(), CheckOptions{
		Dataset: dataset,
		Points: []geo.Origin{
			{Latitude: 0.0001, Longitude: 0.0001},
			{Latitude: 0.0002, Longitude: -0.0002},
			{Latitude: 0.01, Longitude: 0},
			{Latitude: 91, Longitude: 0},
		},
		Replay: replay,
	}, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "Loaded 1 zones from zones.geojson (1 warnings)", lines[0])
	assert.Contains(t, out.String(), "zones: Alpha")
	assert.Contains(t, out.String(), "-> Alpha")
	assert.Contains(t, out.String(), "-> None")
	assert.Contains(t, out.String(), "rejected")
	assert.Equal(t, "evaluated 4 fixes, last zone None", lines[len(lines)-1])
}

func TestRunZoneCheck_OpenError(t *testing.T) {
	err := RunZoneCheck(context.Background(), CheckOptions{Dataset: filepath.Join(t.TempDir(), "none.shp")}, io.Discard)
	assert.ErrorIs(t, err, catalog.ErrDatasetOpen)
}

func TestLoader_StatusLines(t *testing.T) {
	board := status.NewBoard()
	l := NewLoader(catalog.New(catalog.DefaultOptions()), board)

	_, err := l.Load(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, status.NoZones, board.String())

	_, err = l.Load(context.Background(), writeTemp(t, "zones.geojson", squareGeoJSON))
	require.NoError(t, err)
	assert.Equal(t, "Loaded 1 zones from zones.geojson (1 warnings)", board.String())
	assert.Equal(t, status.Warn, board.Current().Severity)

	_, err = l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(board.String(), "Load failed: "))
	assert.Equal(t, status.Error, board.Current().Severity)
}

func TestOriginGate(t *testing.T) {
	frame := &geo.LocalXY{}
	gate := originGate{frame: frame, auto: true}

	gate.admit(gps.Fix{Latitude: 1, Longitude: 1, Validity: gps.Void})
	assert.False(t, frame.Initialized(), "void fixes never anchor")

	gate.admit(gps.Fix{Latitude: 52, Longitude: 13, Validity: gps.Valid})
	gate.admit(gps.Fix{Latitude: 53, Longitude: 14, Validity: gps.Valid})
	o, ok := frame.Origin()
	require.True(t, ok)
	assert.Equal(t, geo.Origin{Latitude: 52, Longitude: 13}, o)

	manual := &geo.LocalXY{}
	originGate{frame: manual}.admit(gps.Fix{Latitude: 52, Longitude: 13, Validity: gps.Valid})
	assert.False(t, manual.Initialized())
}

func TestSetupFrame(t *testing.T) {
	cfg := config.Defaults()
	cfg.OriginMode = config.OriginFixed
	cfg.OriginLat, cfg.OriginLon = 48.1, 11.5
	frame, err := setupFrame(cfg)
	require.NoError(t, err)
	assert.True(t, frame.Initialized())

	cfg.OriginMode = config.OriginAuto
	frame, err = setupFrame(cfg)
	require.NoError(t, err)
	assert.False(t, frame.Initialized())
}

type sliceSource struct {
	fixes []gps.Fix
}

func (s *sliceSource) Next() (gps.Fix, error) {
	if len(s.fixes) == 0 {
		return gps.Fix{}, io.EOF
	}
	f := s.fixes[0]
	s.fixes = s.fixes[1:]
	return f, nil
}

func TestPump(t *testing.T) {
	src := &sliceSource{fixes: []gps.Fix{{Latitude: 1}, {Latitude: 2}, {Latitude: 3}}}
	var got []float64
	err := pump(context.Background(), src, time.Millisecond, func(f gps.Fix) { got = append(got, f.Latitude) })
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, []float64{1, 2, 3}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pump(ctx, &sliceSource{fixes: []gps.Fix{{}}}, 0, func(gps.Fix) {})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsolePrinter(t *testing.T) {
	var out bytes.Buffer
	p := &consolePrinter{w: &out}
	p.zone("Alpha")
	p.zone("Alpha")
	p.zone("None")
	assert.Equal(t, "[ZONE]* Alpha\n[ZONE]  Alpha\n[ZONE]* None\n", out.String())
}
