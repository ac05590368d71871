package contour

import (
	"spm-spots/pkg/geometry"
)

// neighbours lists the 8-neighbourhood clockwise (image y grows down),
// starting west.
var neighbours = [8]geometry.PointInt{
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
}

// BoundaryTracer traces the outer boundary of every 8-connected foreground
// region with Moore-neighbour tracing. Regions are reported in raster
// order of their top-left pixel; regions lying inside a hole of an earlier
// region are skipped.
type BoundaryTracer struct{}

// Trace implements Tracer.
func (BoundaryTracer) Trace(m *Mask) ([]Contour, error) {
	visited := make([]bool, len(m.Pix))
	var out []Contour
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if !m.At(r, c) || visited[r*m.Cols+c] {
				continue
			}
			start := geometry.PointInt{X: c, Y: r}
			markRegion(m, start, visited)
			if insideAny(start, out) {
				continue
			}
			out = append(out, FromPoints(traceBoundary(m, start)))
		}
	}
	return out, nil
}

// markRegion flags every pixel 8-connected to start.
func markRegion(m *Mask, start geometry.PointInt, visited []bool) {
	queue := []geometry.PointInt{start}
	visited[start.Y*m.Cols+start.X] = true
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range neighbours {
			n := geometry.PointInt{X: p.X + d.X, Y: p.Y + d.Y}
			if !m.At(n.Y, n.X) || visited[n.Y*m.Cols+n.X] {
				continue
			}
			visited[n.Y*m.Cols+n.X] = true
			queue = append(queue, n)
		}
	}
}

func insideAny(p geometry.PointInt, contours []Contour) bool {
	for _, c := range contours {
		if len(c.Points) >= 3 && geometry.PointInPolygon(p.ToFloat(), c.Points) {
			return true
		}
	}
	return false
}

// step finds the next boundary pixel clockwise around cur, starting after
// the background pixel back. It returns the pixel and the new backtrack.
func step(m *Mask, cur, back geometry.PointInt) (next, nextBack geometry.PointInt, ok bool) {
	k := 0
	for i, d := range neighbours {
		if cur.X+d.X == back.X && cur.Y+d.Y == back.Y {
			k = i
			break
		}
	}
	prev := back
	for i := 1; i <= 8; i++ {
		d := neighbours[(k+i)%8]
		p := geometry.PointInt{X: cur.X + d.X, Y: cur.Y + d.Y}
		if m.At(p.Y, p.X) {
			return p, prev, true
		}
		prev = p
	}
	return cur, back, false
}

// traceBoundary walks the boundary of the region whose top-left pixel is
// start, stopping when start is re-entered in the same direction.
func traceBoundary(m *Mask, start geometry.PointInt) []geometry.PointInt {
	points := []geometry.PointInt{start}
	back := geometry.PointInt{X: start.X - 1, Y: start.Y}
	first, firstBack, ok := step(m, start, back)
	if !ok {
		return points
	}

	cur, back := first, firstBack
	limit := 4*len(m.Pix) + 8
	for i := 0; i < limit; i++ {
		if cur == start {
			next, nb, _ := step(m, cur, back)
			if next == first {
				break
			}
			points = append(points, cur)
			cur, back = next, nb
			continue
		}
		points = append(points, cur)
		cur, back, _ = step(m, cur, back)
	}
	return points
}
