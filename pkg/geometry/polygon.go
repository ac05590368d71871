package geometry

import "math"

// Moments holds the raw spatial moments of a closed polygon up to first order.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// PolygonMoments computes m00, m10 and m01 of the polygon enclosed by the
// vertices using Green's theorem, the same way contour moments are defined
// for traced boundaries. The sign is normalised so that M00 is never
// negative regardless of winding direction.
func PolygonMoments(polygon []PointInt) Moments {
	n := len(polygon)
	if n < 3 {
		return Moments{}
	}

	var a00, a10, a01 float64
	prev := polygon[n-1].ToFloat()
	for _, pi := range polygon {
		p := pi.ToFloat()
		cross := prev.X*p.Y - p.X*prev.Y
		a00 += cross
		a10 += cross * (prev.X + p.X)
		a01 += cross * (prev.Y + p.Y)
		prev = p
	}

	m := Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// PolygonArea returns the absolute enclosed area of a closed polygon.
func PolygonArea(polygon []PointInt) float64 {
	return PolygonMoments(polygon).M00
}

// PolygonPerimeter returns the length of the closed polyline through the
// vertices, including the closing edge back to the first vertex.
func PolygonPerimeter(polygon []PointInt) float64 {
	n := len(polygon)
	if n < 2 {
		return 0
	}
	var sum float64
	prev := polygon[n-1].ToFloat()
	for _, pi := range polygon {
		p := pi.ToFloat()
		sum += math.Hypot(p.X-prev.X, p.Y-prev.Y)
		prev = p
	}
	return sum
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []PointInt) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i].ToFloat(), polygon[j].ToFloat()

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}
