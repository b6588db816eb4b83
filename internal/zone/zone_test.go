package zone

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/zone_tracker/internal/geo"
)

func square(t *testing.T, name string, x0, y0, size float64) Polygon {
	t.Helper()
	p, err := NewPolygon(name, []Vertex{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size},
	})
	require.NoError(t, err)
	return p
}

func TestParseRing_AllPairs(t *testing.T) {
	r := ParseRing("0 0, 10 0, 10 10, 0 10")

	require.True(t, r.Clean())
	assert.Equal(t, 4, r.Pairs)
	assert.Equal(t, []Vertex{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, r.Vertices)
}

func TestParseRing_PreservesCountAndOrder(t *testing.T) {
	for n := 3; n <= 40; n++ {
		parts := make([]string, n)
		want := make([]Vertex, n)
		for i := 0; i < n; i++ {
			x := float64(i) * 1.25
			y := -float64(i) / 3
			parts[i] = fmt.Sprintf("%g %g", x, y)
			want[i] = Vertex{x, y}
		}
		r := ParseRing(strings.Join(parts, ", "))
		require.True(t, r.Clean(), "n=%d", n)
		require.Len(t, r.Vertices, n)
		assert.Equal(t, want, r.Vertices)
	}
}

func TestParseRing_Delimiters(t *testing.T) {
	tests := []string{
		"((0 0, 4 0, 4 4))",
		"POLYGON ((0 0, 4 0, 4 4))",
		"polygon((0 0,4 0,4 4))",
		"[0 0, 4 0, 4 4]",
		"  {  0 0 ,  4 0 ,4   4 }  ",
		"0\t0,\n4 0, 4\t\t4",
	}
	for _, in := range tests {
		r := ParseRing(in)
		assert.True(t, r.Clean(), "input %q: %v", in, r.Diagnostics)
		assert.Equal(t, []Vertex{{0, 0}, {4, 0}, {4, 4}}, r.Vertices, "input %q", in)
	}
}

func TestParseRing_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "(())", "POLYGON ()"} {
		r := ParseRing(in)
		assert.Empty(t, r.Vertices, "input %q", in)
		assert.Empty(t, r.Diagnostics, "input %q", in)
	}
}

func TestParseRing_SkipsMalformedPairs(t *testing.T) {
	r := ParseRing("0 0, 10 0, 10;5 7, 10 10, 3, 0 10, NaN 1, 1e400 2")

	assert.Equal(t, 8, r.Pairs)
	assert.Equal(t, []Vertex{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, r.Vertices)
	require.Len(t, r.Diagnostics, 4)
	assert.Equal(t, 3, r.Diagnostics[0].Pair)
	assert.Equal(t, "10;5 7", r.Diagnostics[0].Token)
	assert.Equal(t, 5, r.Diagnostics[1].Pair)
	assert.Contains(t, r.Diagnostics[1].Reason, "missing y")
	assert.Equal(t, 7, r.Diagnostics[2].Pair)
	assert.Equal(t, 8, r.Diagnostics[3].Pair)
}

func TestParseRing_SecondWhitespaceRunBelongsToY(t *testing.T) {
	r := ParseRing("0 0 5, 1 1, 2 0, 0 2")

	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, 1, r.Diagnostics[0].Pair)
	assert.Len(t, r.Vertices, 3)
}

func TestParseRing_TrailingComma(t *testing.T) {
	r := ParseRing("0 0, 1 0, 1 1,")

	assert.Len(t, r.Vertices, 3)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, "empty pair", r.Diagnostics[0].Reason)
}

func TestParseRing_PolygonWithHoleKeepsOuterRing(t *testing.T) {
	r := ParseRing("POLYGON((0 0, 10 0, 10 10, 0 10, 0 0), (4 4, 6 4, 6 6, 4 6, 4 4))")

	assert.Equal(t, 5, r.Pairs)
	assert.Equal(t, []Vertex{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}, r.Vertices)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, 6, r.Diagnostics[0].Pair)
	assert.Equal(t, "4 4, 6 4, 6 6, 4 6, 4 4", r.Diagnostics[0].Token)
	assert.Equal(t, "inner ring 1 dropped", r.Diagnostics[0].Reason)

	p, err := NewPolygon("holed", r.Vertices)
	require.NoError(t, err)
	assert.True(t, p.Contains(geo.LocalPoint{X: 1, Y: 8}))
	assert.True(t, p.Contains(geo.LocalPoint{X: 5, Y: 5}))
}

func TestParseRing_RejectsNonDecimalOrdinates(t *testing.T) {
	r := ParseRing("0x1p3 0, 0 0X10, 1_0 0, Inf 1, 0 0, 10 0, 10 10")

	assert.Equal(t, []Vertex{{0, 0}, {10, 0}, {10, 10}}, r.Vertices)
	require.Len(t, r.Diagnostics, 4)
	for i, d := range r.Diagnostics {
		assert.Equal(t, i+1, d.Pair)
		assert.Contains(t, d.Reason, "not a decimal number")
	}
}

func TestNewPolygon_TooFewVertices(t *testing.T) {
	_, err := NewPolygon("tiny", []Vertex{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = NewPolygon("empty", nil)
	assert.ErrorIs(t, err, ErrTooFewVertices)
}

func TestNewPolygon_CopiesVertices(t *testing.T) {
	in := []Vertex{{0, 0}, {2, 0}, {0, 2}}
	p, err := NewPolygon("tri", in)
	require.NoError(t, err)

	in[0] = Vertex{99, 99}
	assert.Equal(t, Vertex{0, 0}, p.Vertices()[0])
	assert.Equal(t, Vertex{0, 0}, p.Bound.Min)
	assert.Equal(t, Vertex{2, 2}, p.Bound.Max)
}

func TestContains_Square(t *testing.T) {
	alpha := square(t, "Alpha", 0, 0, 10)

	assert.True(t, alpha.Contains(geo.LocalPoint{X: 5, Y: 5}))
	assert.False(t, alpha.Contains(geo.LocalPoint{X: 15, Y: 15}))
	assert.False(t, alpha.Contains(geo.LocalPoint{X: -0.001, Y: 5}))
}

func TestContains_BoundaryConvention(t *testing.T) {
	alpha := square(t, "Alpha", 0, 0, 10)

	tests := []struct {
		name string
		pt   geo.LocalPoint
		want bool
	}{
		{"left edge", geo.LocalPoint{X: 0, Y: 5}, true},
		{"bottom edge", geo.LocalPoint{X: 5, Y: 0}, true},
		{"right edge", geo.LocalPoint{X: 10, Y: 5}, false},
		{"top edge", geo.LocalPoint{X: 5, Y: 10}, false},
		{"bottom-left vertex", geo.LocalPoint{X: 0, Y: 0}, true},
		{"top-right vertex", geo.LocalPoint{X: 10, Y: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				assert.Equal(t, tt.want, alpha.Contains(tt.pt))
			}
		})
	}
}

func TestContains_Concave(t *testing.T) {
	// U shape opening upwards
	u, err := NewPolygon("U", []Vertex{
		{0, 0}, {9, 0}, {9, 9}, {6, 9}, {6, 3}, {3, 3}, {3, 9}, {0, 9},
	})
	require.NoError(t, err)

	assert.True(t, u.Contains(geo.LocalPoint{X: 1, Y: 8}))
	assert.True(t, u.Contains(geo.LocalPoint{X: 8, Y: 8}))
	assert.True(t, u.Contains(geo.LocalPoint{X: 4.5, Y: 1}))
	assert.False(t, u.Contains(geo.LocalPoint{X: 4.5, Y: 6}), "inside the notch")
}

func TestContains_RayThroughVertex(t *testing.T) {
	// diamond: the ray from the centre passes exactly through the right vertex
	d, err := NewPolygon("diamond", []Vertex{{5, 0}, {10, 5}, {5, 10}, {0, 5}})
	require.NoError(t, err)

	assert.True(t, d.Contains(geo.LocalPoint{X: 5, Y: 5}))
	assert.False(t, d.Contains(geo.LocalPoint{X: -1, Y: 5}))
	assert.False(t, d.Contains(geo.LocalPoint{X: 11, Y: 5}))
}

func TestContains_ClosedRingDuplicateVertex(t *testing.T) {
	closed, err := NewPolygon("closed", []Vertex{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}})
	require.NoError(t, err)

	assert.True(t, closed.Contains(geo.LocalPoint{X: 5, Y: 5}))
	assert.False(t, closed.Contains(geo.LocalPoint{X: 15, Y: 5}))
}

func TestLocate_FirstMatchWins(t *testing.T) {
	a := square(t, "A", 0, 0, 10)
	b := square(t, "B", 5, 5, 10)
	p := geo.LocalPoint{X: 7, Y: 7}

	assert.Equal(t, Match("A"), Locate(p, []Polygon{a, b}))
	assert.Equal(t, Match("B"), Locate(p, []Polygon{b, a}))
	assert.Equal(t, Match("B"), Locate(geo.LocalPoint{X: 12, Y: 12}, []Polygon{a, b}))
}

func TestLocate_None(t *testing.T) {
	zones := []Polygon{square(t, "A", 0, 0, 10), square(t, "B", 20, 0, 10)}

	res := Locate(geo.LocalPoint{X: 15, Y: 50}, zones)
	assert.False(t, res.Matched)
	assert.Equal(t, NoneName, res.String())

	assert.Equal(t, None, Locate(geo.LocalPoint{}, nil))
}

func TestLocate_NoSideEffects(t *testing.T) {
	zones := []Polygon{square(t, "A", 0, 0, 10), square(t, "B", 5, 5, 10)}
	before := fmt.Sprintf("%v", zones)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p := geo.LocalPoint{X: float64((i + g) % 20), Y: float64(i % 17)}
				first := Locate(p, zones)
				assert.Equal(t, first, Locate(p, zones))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, before, fmt.Sprintf("%v", zones))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "None", None.String())
	assert.Equal(t, "Alpha", Match("Alpha").String())
}
