package contour

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/calibration"
	"spm-spots/internal/scan"
	"spm-spots/pkg/geometry"
)

func maskFrom(rows ...string) *Mask {
	m := NewMask(len(rows), len(rows[0]))
	for r, line := range rows {
		for c, ch := range line {
			if ch == '#' {
				m.Set(r, c)
			}
		}
	}
	return m
}

func TestCircularityZeroPerimeter(t *testing.T) {
	for _, area := range []float64{0, 1, 1e6, -3} {
		assert.Equal(t, 0.0, Circularity(area, 0))
	}
	assert.InDelta(t, 1.0, Circularity(math.Pi, 2*math.Pi), 1e-12)
}

func TestAcceptRejectsBoundaries(t *testing.T) {
	c := Contour{Circularity: 0.1, AreaPx: 50}
	assert.False(t, Accept(c, 0.1, 0.9, 10, 200))

	c.Circularity = 0.9
	assert.False(t, Accept(c, 0.1, 0.9, 10, 200))

	c.Circularity = 0.5
	assert.True(t, Accept(c, 0.1, 0.9, 10, 200))

	c.AreaPx = 10
	assert.False(t, Accept(c, 0.1, 0.9, 10, 200))
	c.AreaPx = 200
	assert.False(t, Accept(c, 0.1, 0.9, 10, 200))
}

func TestFilterKeepsOrderAndNames(t *testing.T) {
	candidates := []Contour{
		{Index: -1, Circularity: 0.5, AreaPx: 50},
		{Index: -1, Circularity: 0.05, AreaPx: 50},
		{Index: -1, Circularity: 0.6, AreaPx: 30},
		{Index: -1, Circularity: 0.7, AreaPx: 500},
		{Index: -1, Circularity: 0.8, AreaPx: 20},
	}
	p := DefaultParams().WithCircularity(0.1, 0.9)
	p.MinAreaPx, p.MaxAreaPx = 10, 200

	got := Filter(candidates, p)
	require.Len(t, got, 3)
	for i, want := range []float64{50, 30, 20} {
		assert.Equal(t, i, got[i].Index)
		assert.Equal(t, Name(i), got[i].Name)
		assert.Equal(t, want, got[i].AreaPx)
	}
	assert.Equal(t, "002", got[2].Name)
	assert.Equal(t, -1, candidates[0].Index)

	again := Filter(candidates, p)
	assert.Equal(t, got, again)
}

func TestWithAreaNm2(t *testing.T) {
	c, err := calibration.New(20, 20, 10, 10)
	require.NoError(t, err)
	p := DefaultParams().WithAreaNm2(40, 401, c)
	assert.Equal(t, 10.0, p.MinAreaPx)
	assert.Equal(t, 100.0, p.MaxAreaPx)
}

func TestFromPointsSquare(t *testing.T) {
	c := FromPoints([]geometry.PointInt{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}})
	assert.Equal(t, 16.0, c.AreaPx)
	assert.Equal(t, 16.0, c.PerimeterPx)
	assert.InDelta(t, math.Pi/4, c.Circularity, 1e-12)
	assert.Equal(t, -1, c.Index)
	assert.Equal(t, geometry.RectInt{X: 0, Y: 0, Width: 5, Height: 5}, c.Bounds)
}

func TestBoundaryTracerSquare(t *testing.T) {
	m := maskFrom(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	got, err := BoundaryTracer{}.Trace(m)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []geometry.PointInt{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 2},
		{X: 3, Y: 3}, {X: 2, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 2},
	}, got[0].Points)
	assert.Equal(t, 4.0, got[0].AreaPx)
	assert.Equal(t, 8.0, got[0].PerimeterPx)
}

func TestBoundaryTracerOrderAndHoles(t *testing.T) {
	m := maskFrom(
		"#.......#",
		"..#####..",
		"..#...#..",
		"..#.#.#..",
		"..#...#..",
		"..#####..",
	)
	got, err := BoundaryTracer{}.Trace(m)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, geometry.PointInt{X: 0, Y: 0}, got[0].Points[0])
	assert.Equal(t, geometry.PointInt{X: 8, Y: 0}, got[1].Points[0])
	assert.Equal(t, geometry.PointInt{X: 2, Y: 1}, got[2].Points[0])
	assert.Equal(t, 16.0, got[2].AreaPx)
	assert.Equal(t, 0.0, got[0].PerimeterPx)
}

func TestExtract(t *testing.T) {
	f, err := scan.FrameFromRows(0, [][]float64{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 5, 5, 5, 0, 0, 0, 0},
		{0, 5, 5, 5, 0, 5, 5, 0},
		{0, 5, 5, 5, 0, 5, 5, 0},
		{0, 0, 0, 0, 0, 0, 0, 0},
	})
	require.NoError(t, err)

	p := DefaultParams()
	p.MinAreaPx = 2
	got, err := Extract(f, ThresholdDetector{Level: 1}, BoundaryTracer{}, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "000", got[0].Name)
	assert.Equal(t, 4.0, got[0].AreaPx)

	p.MinAreaPx = 0
	got, err = Extract(f, ThresholdDetector{Level: 1}, BoundaryTracer{}, p)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001", got[1].Name)
	assert.Equal(t, 1.0, got[1].AreaPx)
}
