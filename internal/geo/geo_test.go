package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjector_UninitializedFrame(t *testing.T) {
	frame := &LocalXY{}
	p := NewProjector(frame)

	_, err := p.Project(38.1, -120.4)
	assert.ErrorIs(t, err, ErrUninitializedFrame)

	require.NoError(t, frame.SetOrigin(38.1, -120.4))
	pt, err := p.Project(38.1, -120.4)
	require.NoError(t, err)
	assert.Equal(t, LocalPoint{}, pt, "origin maps to 0,0")
}

func TestProjector_NilProvider(t *testing.T) {
	_, err := NewProjector(nil).Project(1, 1)
	assert.ErrorIs(t, err, ErrUninitializedFrame)
}

func TestProjector_Deterministic(t *testing.T) {
	frame, err := NewLocalXY(29.4482, -98.6158)
	require.NoError(t, err)
	p := NewProjector(frame)

	a, err := p.Project(29.4491, -98.6139)
	require.NoError(t, err)
	b, err := p.Project(29.4491, -98.6139)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(a.X), math.Float64bits(b.X))
	assert.Equal(t, math.Float64bits(a.Y), math.Float64bits(b.Y))
}

func TestLocalXY_EquatorScale(t *testing.T) {
	frame, err := NewLocalXY(0, 0)
	require.NoError(t, err)

	x, y := frame.ToLocalXY(0, 1)
	assert.InDelta(t, 111319.49, x, 0.1, "one degree of longitude at the equator")
	assert.InDelta(t, 0, y, 1e-9)

	x, y = frame.ToLocalXY(1, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 110574.27, y, 0.1, "one degree of latitude at the equator")
}

func TestLocalXY_AxesAndRoundTrip(t *testing.T) {
	frame, err := NewLocalXY(38.1327, -120.4606)
	require.NoError(t, err)

	x, y := frame.ToLocalXY(38.1337, -120.4596)
	assert.Greater(t, x, 0.0, "east is +X")
	assert.Greater(t, y, 0.0, "north is +Y")
	assert.InDelta(t, 111, y, 1, "0.001 deg latitude is about 111 m")

	lat, lon, err := frame.FromLocalXY(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 38.1337, lat, 1e-9)
	assert.InDelta(t, -120.4596, lon, 1e-9)
}

func TestLocalXY_AntimeridianWrap(t *testing.T) {
	frame, err := NewLocalXY(0, 179.9999)
	require.NoError(t, err)

	x, _ := frame.ToLocalXY(0, -179.9999)
	assert.InDelta(t, 22.26, x, 0.1, "crossing the antimeridian stays local")
}

func TestLocalXY_SingleOrigin(t *testing.T) {
	frame := &LocalXY{}
	assert.False(t, frame.Initialized())

	require.NoError(t, frame.SetOrigin(10, 20))
	require.NoError(t, frame.SetOrigin(10, 20), "same origin again is accepted")
	assert.ErrorIs(t, frame.SetOrigin(11, 20), ErrOriginAlreadySet)

	o, ok := frame.Origin()
	require.True(t, ok)
	assert.Equal(t, Origin{Latitude: 10, Longitude: 20}, o)
}

func TestLocalXY_InvalidOrigin(t *testing.T) {
	frame := &LocalXY{}
	assert.Error(t, frame.SetOrigin(91, 0))
	assert.Error(t, frame.SetOrigin(math.NaN(), 0))
	assert.False(t, frame.Initialized())

	_, _, err := frame.FromLocalXY(1, 1)
	assert.ErrorIs(t, err, ErrUninitializedFrame)
}
