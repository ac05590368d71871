package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"spm-spots/internal/scan"
	"spm-spots/internal/spot"
	"spm-spots/pkg/colorutil"
	"spm-spots/pkg/geometry"
)

// FrameImage renders frame as 8-bit grayscale, stretching its value range
// to 0-255. Row 0 is the top of the image.
func FrameImage(frame *scan.Frame) *image.Gray {
	rows, cols := frame.Dims()
	values := frame.Values()
	lo, hi := valueRange(values)
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for i, v := range values {
		img.Pix[(i/cols)*img.Stride+i%cols] = colorutil.GrayLevel(v, lo, hi)
	}
	return img
}

// Labeled renders frame with each record's contour outlined and its name
// drawn at the centroid. scale magnifies the frame so labels stay legible
// on small rasters.
func Labeled(frame *scan.Frame, records []spot.Record, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	gray := FrameImage(frame)
	var base image.Image = gray
	if scale > 1 {
		b := gray.Bounds()
		base = imaging.Resize(gray, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}
	out := image.NewRGBA(base.Bounds())
	draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)

	center := func(p geometry.PointInt) image.Point {
		return cellCenter(geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}, scale)
	}
	for i, r := range records {
		col := colorutil.LabelColor(i)
		pts := r.Contour.Points
		for j := range pts {
			drawLine(out, center(pts[j]), center(pts[(j+1)%len(pts)]), col)
		}
		if r.HasCentroid {
			at := cellCenter(r.CentroidPx, scale)
			d := &font.Drawer{
				Dst:  out,
				Src:  image.NewUniform(col),
				Face: basicfont.Face7x13,
				Dot: fixed.Point26_6{
					X: fixed.I(at.X - 3*len(r.Name)),
					Y: fixed.I(at.Y + 6),
				},
			}
			d.DrawString(r.Name)
		}
	}
	return out
}

// cellCenter maps a pixel position onto the centre of its magnified cell
// in a frame scaled by scale.
func cellCenter(p geometry.Point2D, scale int) image.Point {
	return image.Point{
		X: int(math.Round(p.X*float64(scale))) + scale/2,
		Y: int(math.Round(p.Y*float64(scale))) + scale/2,
	}
}

// SaveLabeled writes the labeled overlay of frame to path. The encoder is
// chosen from the extension (png, jpg, tif, bmp, gif).
func SaveLabeled(path string, frame *scan.Frame, records []spot.Record, scale int) error {
	if err := imaging.Save(Labeled(frame, records, scale), path); err != nil {
		return fmt.Errorf("failed to save labeled image %s: %w", path, err)
	}
	return nil
}

// DeviationImage renders a squared-deviation map as 16-bit grayscale
// scaled from 0 to the map's maximum.
func DeviationImage(dev *mat.Dense) *image.Gray16 {
	rows, cols := dev.Dims()
	hi := mat.Max(dev)
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var v uint16
			if hi > 0 {
				v = uint16(math.Round(math.Min(dev.At(r, c)/hi, 1) * math.MaxUint16))
			}
			img.SetGray16(c, r, color.Gray16{Y: v})
		}
	}
	return img
}

// SaveDeviationMap writes dev as a 16-bit grayscale image.
func SaveDeviationMap(path string, dev *mat.Dense) error {
	if err := imaging.Save(DeviationImage(dev), path); err != nil {
		return fmt.Errorf("failed to save deviation map %s: %w", path, err)
	}
	return nil
}

func valueRange(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// drawLine draws a one pixel wide segment with Bresenham's algorithm.
func drawLine(img *image.RGBA, a, b image.Point, col color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(a.X, a.Y, col)
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
