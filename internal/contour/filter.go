package contour

import (
	"math"

	"spm-spots/internal/calibration"
)

// Params holds the acceptance bounds. All bounds are exclusive.
type Params struct {
	CircularityLow  float64
	CircularityHigh float64
	MinAreaPx       float64
	MaxAreaPx       float64
}

// DefaultParams returns bounds that keep roughly round spots of any
// practical size.
func DefaultParams() Params {
	return Params{
		CircularityLow:  0.1,
		CircularityHigh: 1.5,
		MinAreaPx:       0,
		MaxAreaPx:       math.MaxFloat64,
	}
}

// WithAreaNm2 returns a copy of p with the pixel area bounds derived from
// physical bounds in nm².
func (p Params) WithAreaNm2(minNm2, maxNm2 float64, c calibration.Coefficients) Params {
	p.MinAreaPx = float64(calibration.AreaPixelsFromNm2(minNm2, c))
	p.MaxAreaPx = float64(calibration.AreaPixelsFromNm2(maxNm2, c))
	return p
}

// WithCircularity returns a copy of p with custom circularity bounds.
func (p Params) WithCircularity(low, high float64) Params {
	p.CircularityLow = low
	p.CircularityHigh = high
	return p
}

// Accept reports whether c lies strictly inside every bound. A contour
// exactly on a bound is rejected.
func Accept(c Contour, circLow, circHigh, minAreaPx, maxAreaPx float64) bool {
	return circLow < c.Circularity && c.Circularity < circHigh &&
		minAreaPx < c.AreaPx && c.AreaPx < maxAreaPx
}

// Accept applies the bounds in p.
func (p Params) Accept(c Contour) bool {
	return Accept(c, p.CircularityLow, p.CircularityHigh, p.MinAreaPx, p.MaxAreaPx)
}

// Filter returns the accepted candidates in their original order, each
// given the next sequential Index and Name. candidates is not modified.
func Filter(candidates []Contour, p Params) []Contour {
	var out []Contour
	for _, c := range candidates {
		if !p.Accept(c) {
			continue
		}
		c.Index = len(out)
		c.Name = Name(c.Index)
		out = append(out, c)
	}
	return out
}
