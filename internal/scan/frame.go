package scan

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Frame is one rows x cols raster of physical samples.
type Frame struct {
	// Index is the position of the frame within its dataset, from 0.
	Index int
	// Samples is the number of values actually read from the file.
	// It is lower than Rows*Cols when the data segment was truncated;
	// the missing tail is zero.
	Samples int
	Data    *mat.Dense
}

// NewFrame wraps row-major samples into a frame. data is copied only when
// it is shorter than rows*cols.
func NewFrame(index, rows, cols int, data []float64) *Frame {
	n := rows * cols
	samples := len(data)
	if samples > n {
		data = data[:n]
		samples = n
	}
	if samples < n {
		padded := make([]float64, n)
		copy(padded, data)
		data = padded
	}
	return &Frame{Index: index, Samples: samples, Data: mat.NewDense(rows, cols, data)}
}

// FrameFromRows builds a complete frame from nested row slices.
// All rows must have the same length.
func FrameFromRows(index int, rows [][]float64) (*Frame, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedHeader)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return NewFrame(index, len(rows), cols, data), nil
}

// Dims returns the frame's rows and columns.
func (f *Frame) Dims() (rows, cols int) {
	return f.Data.Dims()
}

// At returns the sample at row r, column c.
func (f *Frame) At(r, c int) float64 {
	return f.Data.At(r, c)
}

// Values returns the row-major backing slice of the frame. Callers must
// not modify it.
func (f *Frame) Values() []float64 {
	raw := f.Data.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for r := 0; r < raw.Rows; r++ {
		out = append(out, raw.Data[r*raw.Stride:r*raw.Stride+raw.Cols]...)
	}
	return out
}

// Truncated reports whether the frame was cut short by the file.
func (f *Frame) Truncated() bool {
	r, c := f.Dims()
	return f.Samples < r*c
}

// Label returns the frame label used in logs and derived-artifact folders,
// numbered from 1.
func (f *Frame) Label() string {
	return fmt.Sprintf("frame_%03d", f.Index+1)
}
