package contour

import (
	"fmt"

	"spm-spots/internal/scan"
)

// Mask is a binary raster; any non-zero value is foreground.
type Mask struct {
	Rows int
	Cols int
	Pix  []uint8 // row-major
}

// NewMask creates an empty rows x cols mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// At reports whether the pixel at row r, column c is set. Out-of-range
// positions are background.
func (m *Mask) At(r, c int) bool {
	if r < 0 || r >= m.Rows || c < 0 || c >= m.Cols {
		return false
	}
	return m.Pix[r*m.Cols+c] != 0
}

// Set marks the pixel at row r, column c as foreground.
func (m *Mask) Set(r, c int) {
	m.Pix[r*m.Cols+c] = 255
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// EdgeDetector turns a frame into a binary mask of the regions to trace.
type EdgeDetector interface {
	Detect(frame *scan.Frame) (*Mask, error)
}

// Tracer extracts the outer boundaries of a mask's regions.
type Tracer interface {
	Trace(mask *Mask) ([]Contour, error)
}

// ThresholdDetector marks samples strictly above Level.
type ThresholdDetector struct {
	Level float64
}

// Detect implements EdgeDetector.
func (d ThresholdDetector) Detect(frame *scan.Frame) (*Mask, error) {
	if frame == nil {
		return nil, fmt.Errorf("no frame to threshold")
	}
	rows, cols := frame.Dims()
	m := NewMask(rows, cols)
	for i, v := range frame.Values() {
		if v > d.Level {
			m.Pix[i] = 255
		}
	}
	return m, nil
}

// Extract runs the detector and tracer over frame and returns the
// accepted, named contours.
func Extract(frame *scan.Frame, det EdgeDetector, tr Tracer, p Params) ([]Contour, error) {
	mask, err := det.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to detect edges: %w", err)
	}
	candidates, err := tr.Trace(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to trace contours: %w", err)
	}
	return Filter(candidates, p), nil
}
