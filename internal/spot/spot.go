// Package spot measures accepted contours in physical units: area,
// centroid and the nearest neighbouring spot.
package spot

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"spm-spots/internal/calibration"
	"spm-spots/internal/contour"
	"spm-spots/pkg/geometry"
)

// NoNeighbour is the neighbour name of a spot without candidates.
const NoNeighbour = "-1"

// tieTolerance is the relative distance difference below which two
// candidates count as equally near; the earlier one is kept.
const tieTolerance = 1e-6

// Record is the measurement of one spot.
type Record struct {
	Name    string          `json:"name"`
	Index   int             `json:"index"`
	Contour contour.Contour `json:"contour"`
	AreaNm2 float64         `json:"area_nm2"`

	CentroidPx  geometry.Point2D `json:"centroid_px"`
	HasCentroid bool             `json:"has_centroid"`

	NearestName       string  `json:"nearest_neighbour"`
	NearestDistanceNm float64 `json:"distance_to_nearest_neighbour_nm"`
}

// Centroid returns the polygon centroid m10/m00, m01/m00 of points. ok is
// false when the enclosed area is zero.
func Centroid(points []geometry.PointInt) (geometry.Point2D, bool) {
	m := geometry.PolygonMoments(points)
	if m.M00 == 0 {
		return geometry.Point2D{}, false
	}
	return geometry.Point2D{X: m.M10 / m.M00, Y: m.M01 / m.M00}, true
}

// Nearest fills the neighbour fields of every record. Distances are taken
// in nanometres after scaling each axis by its own coefficient. Candidates
// are scanned in slice order and only a strictly nearer one replaces the
// current best, so ties resolve to the lowest index. Records without a
// centroid are neither measured nor candidates.
func Nearest(records []Record, c calibration.Coefficients) {
	phys := make([]geometry.Point2D, len(records))
	candidates := 0
	for i, r := range records {
		if r.HasCentroid {
			phys[i] = c.ToPhysical(r.CentroidPx)
			candidates++
		}
	}

	for i := range records {
		records[i].NearestName = NoNeighbour
		records[i].NearestDistanceNm = 0
		if !records[i].HasCentroid || candidates < 2 {
			continue
		}

		best, bestDist := -1, 0.0
		for j := range records {
			if j == i || !records[j].HasCentroid {
				continue
			}
			d := phys[i].Distance(phys[j])
			if best < 0 || bestDist-d > tieTolerance*bestDist {
				best, bestDist = j, d
			}
		}
		records[i].NearestName = records[best].Name
		records[i].NearestDistanceNm = bestDist
	}
}

// AverageArea returns the mean area of records in nm², or 0 when empty.
func AverageArea(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	areas := make([]float64, len(records))
	for i, r := range records {
		areas[i] = r.AreaNm2
	}
	return stat.Mean(areas, nil)
}

// Measure builds one record per contour, in order, and pairs neighbours.
func Measure(contours []contour.Contour, c calibration.Coefficients) []Record {
	records := make([]Record, len(contours))
	for i, ct := range contours {
		r := Record{
			Name:    ct.Name,
			Index:   ct.Index,
			Contour: ct,
			AreaNm2: ct.AreaPx * c.AvgAreaCoefficient,
		}
		if r.Name == "" {
			r.Index = i
			r.Name = contour.Name(i)
		}
		r.CentroidPx, r.HasCentroid = Centroid(ct.Points)
		records[i] = r
	}
	Nearest(records, c)
	return records
}

// Distance returns the physical distance between the centroids of a and b.
// It is NaN when either record lacks a centroid.
func Distance(a, b Record, c calibration.Coefficients) float64 {
	if !a.HasCentroid || !b.HasCentroid {
		return math.NaN()
	}
	return c.ToPhysical(a.CentroidPx).Distance(c.ToPhysical(b.CentroidPx))
}
