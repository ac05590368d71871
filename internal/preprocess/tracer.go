package preprocess

import (
	"fmt"

	"gocv.io/x/gocv"

	"spm-spots/internal/contour"
	"spm-spots/pkg/geometry"
)

// CVTracer is a contour.Tracer backed by OpenCV's external contour
// retrieval. Area and perimeter come from OpenCV.
type CVTracer struct{}

// Trace implements contour.Tracer.
func (CVTracer) Trace(mask *contour.Mask) ([]contour.Contour, error) {
	m, err := gocv.NewMatFromBytes(mask.Rows, mask.Cols, gocv.MatTypeCV8U, mask.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to build mask image: %w", err)
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	out := make([]contour.Contour, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		pts := pv.ToPoints()
		points := make([]geometry.PointInt, len(pts))
		for j, p := range pts {
			points[j] = geometry.PointInt{X: p.X, Y: p.Y}
		}

		c := contour.FromPoints(points)
		c.AreaPx = gocv.ContourArea(pv)
		c.PerimeterPx = gocv.ArcLength(pv, true)
		c.Circularity = contour.Circularity(c.AreaPx, c.PerimeterPx)
		out = append(out, c)
	}
	return out, nil
}
