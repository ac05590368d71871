// Package contour filters traced spot boundaries by shape and size and
// names the accepted ones in tracer order.
//
// # Pipeline
//
// An EdgeDetector turns a frame into a binary Mask, a Tracer extracts the
// outer boundaries of the mask's regions, and Filter keeps the boundaries
// whose circularity and pixel area fall strictly inside the configured
// bounds. Accepted contours are numbered "000", "001", ... in the order the
// tracer produced them.
package contour

import (
	"fmt"
	"math"

	"spm-spots/pkg/geometry"
)

// Contour is a closed boundary in pixel coordinates.
type Contour struct {
	// Index is the position assigned by Filter, -1 until accepted.
	Index int    `json:"index"`
	Name  string `json:"name"`

	Points      []geometry.PointInt `json:"points"`
	Bounds      geometry.RectInt    `json:"bounds"`
	AreaPx      float64             `json:"area_px"`
	PerimeterPx float64             `json:"perimeter_px"`
	Circularity float64             `json:"circularity"`
}

// FromPoints builds an unassigned contour and computes its area, closed
// perimeter and circularity.
func FromPoints(points []geometry.PointInt) Contour {
	area := geometry.PolygonArea(points)
	perimeter := geometry.PolygonPerimeter(points)
	return Contour{
		Index:       -1,
		Points:      points,
		Bounds:      geometry.BoundingBox(points),
		AreaPx:      area,
		PerimeterPx: perimeter,
		Circularity: Circularity(area, perimeter),
	}
}

// Circularity is 4π·area/perimeter². A perfect circle scores 1.0; a
// degenerate contour with no perimeter scores 0.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// Name formats the identifier of the contour at index.
func Name(index int) string {
	return fmt.Sprintf("%03d", index)
}
