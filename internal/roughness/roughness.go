// Package roughness computes the l0 surface statistic of scan frames and
// keeps the append-only log of computed values.
package roughness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"spm-spots/internal/scan"
)

// Result is the roughness of one frame.
type Result struct {
	L0 float64
	// Deviation is the squared-deviation map the value was derived from,
	// nil when l0 was taken from the frame directly.
	Deviation *mat.Dense
}

// SquaredDeviation returns (frame - ref)² elementwise.
func SquaredDeviation(frame *scan.Frame, ref float64) (*mat.Dense, error) {
	if math.IsNaN(ref) || math.IsInf(ref, 0) {
		return nil, fmt.Errorf("%w: reference value %v", scan.ErrInvalidNumeric, ref)
	}
	rows, cols := frame.Dims()
	out := make([]float64, rows*cols)
	for i, v := range frame.Values() {
		d := v - ref
		out[i] = d * d
	}
	if !isFinite(out) {
		return nil, fmt.Errorf("%w: squared deviation is not finite", scan.ErrInvalidNumeric)
	}
	return mat.NewDense(rows, cols, out), nil
}

// L0 returns sqrt(mean(frame)). A negative mean is ErrInvalidNumeric.
func L0(frame *scan.Frame) (float64, error) {
	values := frame.Values()
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty frame", scan.ErrInvalidNumeric)
	}
	mean := stat.Mean(values, nil)
	if math.IsNaN(mean) || mean < 0 {
		return 0, fmt.Errorf("%w: mean %v is negative", scan.ErrInvalidNumeric, mean)
	}
	return math.Sqrt(mean), nil
}

// L0FromDeviation returns sqrt(sum(dev) / element count of frame). dev must
// have the frame's shape; a negative sum is ErrInvalidNumeric.
func L0FromDeviation(frame *scan.Frame, dev *mat.Dense) (float64, error) {
	rows, cols := frame.Dims()
	dr, dc := dev.Dims()
	if dr != rows || dc != cols {
		return 0, fmt.Errorf("deviation map is %dx%d, frame is %dx%d", dr, dc, rows, cols)
	}
	var sum float64
	if raw := dev.RawMatrix(); raw.Stride == raw.Cols {
		sum = floats.Sum(raw.Data[:dr*dc])
	} else {
		sum = mat.Sum(dev)
	}
	if math.IsNaN(sum) || sum < 0 {
		return 0, fmt.Errorf("%w: deviation sum %v is negative", scan.ErrInvalidNumeric, sum)
	}
	return math.Sqrt(sum / float64(rows*cols)), nil
}

// Measure computes l0 directly from the frame.
func Measure(frame *scan.Frame) (Result, error) {
	l0, err := L0(frame)
	if err != nil {
		return Result{}, err
	}
	return Result{L0: l0}, nil
}

// MeasureAgainst computes l0 from the squared deviation of the frame
// against the reference level iset, keeping the map.
func MeasureAgainst(frame *scan.Frame, iset float64) (Result, error) {
	dev, err := SquaredDeviation(frame, iset)
	if err != nil {
		return Result{}, err
	}
	l0, err := L0FromDeviation(frame, dev)
	if err != nil {
		return Result{}, err
	}
	return Result{L0: l0, Deviation: dev}, nil
}

func isFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
