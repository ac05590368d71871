// Package preprocess adapts scan frames to OpenCV: it renders frames as
// 8-bit images, runs the configured blur/threshold/edge/morphology steps
// and traces the resulting mask with FindContours.
package preprocess

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"

	"spm-spots/internal/contour"
	"spm-spots/internal/scan"
	"spm-spots/pkg/colorutil"
)

// StepKind identifies one filter in a chain.
type StepKind int

const (
	StepBlur StepKind = iota
	StepThreshold
	StepCanny
	StepErode
	StepDilate
)

func (k StepKind) String() string {
	switch k {
	case StepBlur:
		return "blur"
	case StepThreshold:
		return "threshold"
	case StepCanny:
		return "canny"
	case StepErode:
		return "erode"
	case StepDilate:
		return "dilate"
	default:
		return "unknown"
	}
}

// ParseStep maps a step name onto its kind.
func ParseStep(name string) (StepKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blur":
		return StepBlur, nil
	case "threshold":
		return StepThreshold, nil
	case "canny":
		return StepCanny, nil
	case "erode":
		return StepErode, nil
	case "dilate":
		return StepDilate, nil
	default:
		return 0, fmt.Errorf("unknown preprocessing step %q", name)
	}
}

// Params configures the filters. Threshold and Canny levels are on the
// 0-255 scale of the normalized frame.
type Params struct {
	Steps            []string
	BlurKernel       int
	Threshold        float64
	CannyLow         float64
	CannyHigh        float64
	ErodeIterations  int
	DilateIterations int
}

// DefaultParams returns a blur followed by a mid-level threshold.
func DefaultParams() Params {
	return Params{
		Steps:            []string{"blur", "threshold"},
		BlurKernel:       5,
		Threshold:        128,
		CannyLow:         50,
		CannyHigh:        150,
		ErodeIterations:  1,
		DilateIterations: 1,
	}
}

// Chain is an EdgeDetector running its steps in order.
type Chain struct {
	kinds  []StepKind
	params Params
}

// NewChain validates p and builds the chain.
func NewChain(p Params) (*Chain, error) {
	if p.BlurKernel <= 0 || p.BlurKernel%2 == 0 {
		return nil, fmt.Errorf("blur kernel must be a positive odd size, got %d", p.BlurKernel)
	}
	if p.CannyLow > p.CannyHigh {
		return nil, fmt.Errorf("canny low threshold %v exceeds high threshold %v", p.CannyLow, p.CannyHigh)
	}
	c := &Chain{params: p}
	for _, name := range p.Steps {
		k, err := ParseStep(name)
		if err != nil {
			return nil, err
		}
		c.kinds = append(c.kinds, k)
	}
	return c, nil
}

// Steps returns the step kinds in execution order.
func (c *Chain) Steps() []StepKind {
	return append([]StepKind(nil), c.kinds...)
}

// Detect implements contour.EdgeDetector.
func (c *Chain) Detect(frame *scan.Frame) (*contour.Mask, error) {
	cur, err := FrameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer func() { cur.Close() }()

	for _, k := range c.kinds {
		next := c.apply(k, cur)
		cur.Close()
		cur = next
	}
	return MatToMask(cur)
}

func (c *Chain) apply(k StepKind, src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	p := c.params
	switch k {
	case StepBlur:
		gocv.GaussianBlur(src, &dst, image.Point{X: p.BlurKernel, Y: p.BlurKernel}, 0, 0, gocv.BorderDefault)
	case StepThreshold:
		gocv.Threshold(src, &dst, float32(p.Threshold), 255, gocv.ThresholdBinary)
	case StepCanny:
		gocv.Canny(src, &dst, float32(p.CannyLow), float32(p.CannyHigh))
	case StepErode, StepDilate:
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
		defer kernel.Close()
		iterations := p.ErodeIterations
		if k == StepDilate {
			iterations = p.DilateIterations
		}
		src.CopyTo(&dst)
		for i := 0; i < iterations; i++ {
			if k == StepErode {
				gocv.Erode(dst, &dst, kernel)
			} else {
				gocv.Dilate(dst, &dst, kernel)
			}
		}
	}
	return dst
}

// FrameToMat renders frame as an 8-bit single-channel Mat, mapping the
// frame's minimum to 0 and maximum to 255.
func FrameToMat(frame *scan.Frame) (gocv.Mat, error) {
	rows, cols := frame.Dims()
	values := frame.Values()
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	buf := make([]byte, len(values))
	for i, v := range values {
		buf[i] = colorutil.GrayLevel(v, lo, hi)
	}
	m, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8U, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build image for %s: %w", frame.Label(), err)
	}
	return m, nil
}

// MatToMask copies a single-channel 8-bit Mat into a mask.
func MatToMask(m gocv.Mat) (*contour.Mask, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("expected 8-bit single-channel image, got type %v", m.Type())
	}
	mask := contour.NewMask(m.Rows(), m.Cols())
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			mask.Pix[r*mask.Cols+c] = m.GetUCharAt(r, c)
		}
	}
	return mask, nil
}
