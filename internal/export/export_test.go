package export

import (
	"bytes"
	"encoding/csv"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"spm-spots/internal/batch"
	"spm-spots/internal/calibration"
	"spm-spots/internal/contour"
	"spm-spots/internal/roughness"
	"spm-spots/internal/scan"
	"spm-spots/internal/spot"
	"spm-spots/pkg/geometry"
)

func testRecords(t *testing.T) []spot.Record {
	t.Helper()
	c, err := calibration.New(10, 10, 10, 10)
	require.NoError(t, err)
	return spot.Measure(contour.Filter([]contour.Contour{
		contour.FromPoints([]geometry.PointInt{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 3}}),
		contour.FromPoints([]geometry.PointInt{{X: 5, Y: 5}, {X: 8, Y: 5}, {X: 8, Y: 8}, {X: 5, Y: 8}}),
	}, contour.DefaultParams()), c)
}

func testFrame(t *testing.T) *scan.Frame {
	t.Helper()
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	return scan.NewFrame(0, 10, 10, data)
}

func TestWriteSpotsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpotsCSV(&buf, testRecords(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"name", "area_nm2", "distance_to_nearest_neighbour_nm", "nearest_neighbour"}, rows[0])
	assert.Equal(t, "000", rows[1][0])
	assert.Equal(t, "4", rows[1][1])
	assert.Equal(t, "001", rows[1][3])
	assert.Equal(t, "9", rows[2][1])
	assert.Equal(t, []string{"average area", "6.5", "", ""}, rows[3])
}

func TestWriteSpotsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSpotsCSV(&buf, nil))
	assert.Equal(t, "name,area_nm2,distance_to_nearest_neighbour_nm,nearest_neighbour\naverage area,0,,\n", buf.String())
}

func TestLayout(t *testing.T) {
	l := NewLayout(filepath.Join("data", "run1", "movie.mpp"))
	assert.Equal(t, filepath.Join("data", "run1", "ISETmap"), l.Dir(DirISETMap, ""))
	assert.Equal(t, filepath.Join("data", "run1", "saved_data", "movie", "frame_002"), l.Dir(DirSavedData, "frame_002"))
	assert.Equal(t, filepath.Join("data", "run1", "l0", "l0.txt"), l.L0Log())
}

func TestFrameImageStretchesRange(t *testing.T) {
	img := FrameImage(testFrame(t))
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(9, 9).Y)
}

func TestLabeledDrawsContours(t *testing.T) {
	records := testRecords(t)
	img := Labeled(testFrame(t), records, 4)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())
	// Corner (1,1) of the first contour lands on the centre of its 4x4 cell.
	assert.Equal(t, records[0].Contour.Points[0], geometry.PointInt{X: 1, Y: 1})
	px := img.RGBAAt(6, 6)
	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(0), px.G)
}

func TestLabelsShareOutlineCells(t *testing.T) {
	for _, scale := range []int{1, 2, 4, 5} {
		want := image.Point{X: 3*scale + scale/2, Y: 2*scale + scale/2}
		assert.Equal(t, want, cellCenter(geometry.Point2D{X: 3, Y: 2}, scale), "scale %d", scale)
	}
	assert.Equal(t, image.Point{X: 8, Y: 8}, cellCenter(geometry.Point2D{X: 1.5, Y: 1.5}, 4))
}

func TestSinkWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	ds := &scan.Dataset{SourcePath: filepath.Join(dir, "scan.stp")}
	frame := testFrame(t)
	s := Sink{LabelScale: 2}

	require.NoError(t, s.Spots(ds, frame, batch.SpotUnit{Unit: batch.Unit{Source: "scan.stp"}, Records: testRecords(t)}))
	_, err := os.Stat(filepath.Join(dir, DirSavedData, "scan"+SuffixSpots))
	require.NoError(t, err)
	labeled, err := imaging.Open(filepath.Join(dir, DirSavedData, "scan"+SuffixLabeled))
	require.NoError(t, err)
	assert.Equal(t, 20, labeled.Bounds().Dx())

	res, err := roughness.MeasureAgainst(frame, 50)
	require.NoError(t, err)
	u := batch.RoughnessUnit{Unit: batch.Unit{Source: "scan.stp", Frame: "frame_001"}, L0: res.L0}
	require.NoError(t, s.Roughness(ds, frame, u, res))
	_, err = os.Stat(filepath.Join(dir, DirISETMap, "scan", "frame_001", "scan"+SuffixDeviation))
	require.NoError(t, err)

	require.NoError(t, s.Roughness(ds, frame, u, roughness.Result{L0: 1}))
}

func TestDeviationImage(t *testing.T) {
	img := DeviationImage(mat.NewDense(1, 3, []float64{0, 2, 4}))
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(32768), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(65535), img.Gray16At(2, 0).Y)

	flat := DeviationImage(mat.NewDense(1, 2, []float64{0, 0}))
	assert.Equal(t, uint16(0), flat.Gray16At(1, 0).Y)

	path := filepath.Join(t.TempDir(), "dev.tif")
	require.NoError(t, SaveDeviationMap(path, mat.NewDense(2, 2, []float64{0, 1, 2, 3})))
	got, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Bounds().Dx())
}
