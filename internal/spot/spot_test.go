package spot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/calibration"
	"spm-spots/internal/contour"
	"spm-spots/pkg/geometry"
)

func unit(t *testing.T) calibration.Coefficients {
	t.Helper()
	c, err := calibration.New(1, 1, 1, 1)
	require.NoError(t, err)
	return c
}

func at(points ...geometry.Point2D) []Record {
	out := make([]Record, len(points))
	for i, p := range points {
		out[i] = Record{Name: contour.Name(i), Index: i, CentroidPx: p, HasCentroid: true}
	}
	return out
}

func TestNearestTieGoesToLowestIndex(t *testing.T) {
	for run := 0; run < 20; run++ {
		records := at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 0}, geometry.Point2D{X: 1, Y: 0.0001})
		Nearest(records, unit(t))
		assert.Equal(t, "001", records[0].NearestName)
		assert.Equal(t, 1.0, records[0].NearestDistanceNm)
		assert.Equal(t, "002", records[1].NearestName)
		assert.InDelta(t, 0.0001, records[1].NearestDistanceNm, 1e-12)
	}

	records := at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 0}, geometry.Point2D{X: -1, Y: 0})
	Nearest(records, unit(t))
	assert.Equal(t, "001", records[0].NearestName)

	records = at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 0}, geometry.Point2D{X: 0, Y: 1 - 1e-12})
	Nearest(records, unit(t))
	assert.Equal(t, "001", records[0].NearestName)

	// 1 and sqrt(1+1e-8) are equal within tieTolerance, so the lower index
	// wins even when it is the marginally farther one.
	records = at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 0.0001}, geometry.Point2D{X: 1, Y: 0})
	Nearest(records, unit(t))
	assert.Equal(t, "001", records[0].NearestName)
	assert.InDelta(t, 1.0, records[0].NearestDistanceNm, 1e-8)
}

func TestNearestUsesPerAxisScale(t *testing.T) {
	c, err := calibration.New(10, 1, 1, 1)
	require.NoError(t, err)
	records := at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 0}, geometry.Point2D{X: 0, Y: 5})
	Nearest(records, c)
	assert.Equal(t, "002", records[0].NearestName)
	assert.Equal(t, 5.0, records[0].NearestDistanceNm)
	assert.Equal(t, math.Sqrt(100+25), Distance(records[1], records[2], c))
}

func TestNearestTooFewCandidates(t *testing.T) {
	records := at(geometry.Point2D{X: 3, Y: 4})
	Nearest(records, unit(t))
	assert.Equal(t, NoNeighbour, records[0].NearestName)
	assert.Equal(t, 0.0, records[0].NearestDistanceNm)

	records = at(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 1, Y: 1})
	records[1].HasCentroid = false
	Nearest(records, unit(t))
	assert.Equal(t, NoNeighbour, records[0].NearestName)
	assert.Equal(t, NoNeighbour, records[1].NearestName)
	assert.True(t, math.IsNaN(Distance(records[0], records[1], unit(t))))
}

func TestCentroid(t *testing.T) {
	p, ok := Centroid([]geometry.PointInt{{X: 2, Y: 2}, {X: 6, Y: 2}, {X: 6, Y: 4}, {X: 2, Y: 4}})
	require.True(t, ok)
	assert.InDelta(t, 4, p.X, 1e-12)
	assert.InDelta(t, 3, p.Y, 1e-12)

	_, ok = Centroid([]geometry.PointInt{{X: 0, Y: 0}, {X: 3, Y: 0}})
	assert.False(t, ok)
}

func TestAverageArea(t *testing.T) {
	assert.Equal(t, 0.0, AverageArea(nil))
	assert.Equal(t, 2.0, AverageArea([]Record{{AreaNm2: 1}, {AreaNm2: 3}}))
}

func TestMeasure(t *testing.T) {
	c, err := calibration.New(20, 10, 10, 10)
	require.NoError(t, err)

	accepted := contour.Filter([]contour.Contour{
		contour.FromPoints([]geometry.PointInt{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}),
		contour.FromPoints([]geometry.PointInt{{X: 10, Y: 0}, {X: 14, Y: 0}, {X: 14, Y: 4}, {X: 10, Y: 4}}),
	}, contour.DefaultParams())
	require.Len(t, accepted, 2)

	got := Measure(accepted, c)
	require.Len(t, got, 2)
	assert.Equal(t, "000", got[0].Name)
	assert.Equal(t, 8.0, got[0].AreaNm2)
	assert.Equal(t, 32.0, got[1].AreaNm2)
	assert.Equal(t, "001", got[0].NearestName)
	assert.Equal(t, "000", got[1].NearestName)
	assert.InDelta(t, math.Hypot(22, 1), got[0].NearestDistanceNm, 1e-9)
	assert.Equal(t, 20.0, AverageArea(got))
}
