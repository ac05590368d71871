// Package scan defines the data model shared by the scan codecs: the
// normalized header, raster frames and datasets, plus the error kinds every
// stage of the measurement pipeline reports.
package scan

import (
	"fmt"
	"strings"
)

// Format identifies one of the supported scan containers.
type Format int

const (
	FormatUnknown Format = iota
	// FormatA is the fixed binary header container with int16 samples.
	FormatA
	// FormatB is the flat text header container with float64 samples.
	FormatB
	// FormatC is the sectioned text header multi-frame movie container.
	FormatC
)

func (f Format) String() string {
	switch f {
	case FormatA:
		return "A"
	case FormatB:
		return "B"
	case FormatC:
		return "C"
	default:
		return "Unknown"
	}
}

// ImageMode indicates which physical quantity the samples hold.
type ImageMode int

const (
	ModeTopography ImageMode = iota
	ModeCurrent
)

func (m ImageMode) String() string {
	switch m {
	case ModeTopography:
		return "topography"
	case ModeCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// ParseImageMode maps a header string such as "Topography" onto an ImageMode.
func ParseImageMode(s string) ImageMode {
	if strings.Contains(strings.ToLower(s), "current") {
		return ModeCurrent
	}
	return ModeTopography
}

// Header is the normalized view of a scan header.
type Header struct {
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	FrameCount int       `json:"frame_count"`
	XSizeNm    float64   `json:"x_size_nm"`
	YSizeNm    float64   `json:"y_size_nm"`
	XOffsetNm  float64   `json:"x_offset_nm"`
	YOffsetNm  float64   `json:"y_offset_nm"`
	ZGain      float64   `json:"z_gain"`
	Mode       ImageMode `json:"image_mode"`
	Raw        RawHeader `json:"-"`
}

// Validate checks the dimension invariants every header must satisfy.
func (h Header) Validate() error {
	if h.Rows <= 0 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrMalformedHeader, h.Rows)
	}
	if h.Cols <= 0 {
		return fmt.Errorf("%w: cols must be positive, got %d", ErrMalformedHeader, h.Cols)
	}
	if h.FrameCount <= 0 {
		return fmt.Errorf("%w: frame count must be positive, got %d", ErrMalformedHeader, h.FrameCount)
	}
	_, err := SampleCount(h.Rows, h.Cols, h.FrameCount)
	return err
}

// MaxSamples bounds the number of samples a header may declare across all
// of its frames.
const MaxSamples = 1 << 27

// SampleCount returns rows*cols*frames. It fails with ErrMalformedHeader
// when a dimension is not positive or the product exceeds MaxSamples.
func SampleCount(rows, cols, frames int) (int, error) {
	n := 1
	for _, d := range []int{rows, cols, frames} {
		if d <= 0 {
			return 0, fmt.Errorf("%w: dimensions %dx%dx%d must be positive", ErrMalformedHeader, rows, cols, frames)
		}
		if n > MaxSamples/d {
			return 0, fmt.Errorf("%w: %dx%dx%d samples exceed the limit of %d", ErrMalformedHeader, rows, cols, frames, MaxSamples)
		}
		n *= d
	}
	return n, nil
}

// Variant is a strongly typed, format-specific header. Each codec package
// provides its own implementation; Normalize produces the common view.
type Variant interface {
	Format() Format
	Normalize() (Header, error)
	Raw() RawHeader
}
