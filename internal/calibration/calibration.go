// Package calibration converts between pixel and physical (nanometre)
// units using the size and point-count fields of a scan header.
package calibration

import (
	"fmt"
	"math"

	"spm-spots/internal/format/mpp"
	"spm-spots/internal/format/raw16"
	"spm-spots/internal/format/stp"
	"spm-spots/internal/scan"
	"spm-spots/pkg/geometry"
)

// Coefficients hold the physical distance covered by one pixel per axis.
type Coefficients struct {
	NmPerPixelX float64
	NmPerPixelY float64
	// AvgAreaCoefficient is the area of one pixel in nm².
	AvgAreaCoefficient float64
}

// New builds coefficients from physical sizes and pixel counts.
func New(xSizeNm, ySizeNm float64, xPixels, yPixels int) (Coefficients, error) {
	if xPixels <= 0 || yPixels <= 0 {
		return Coefficients{}, fmt.Errorf("%w: pixel counts %dx%d", scan.ErrMalformedHeader, xPixels, yPixels)
	}
	if !(xSizeNm > 0) || !(ySizeNm > 0) || math.IsInf(xSizeNm, 0) || math.IsInf(ySizeNm, 0) {
		return Coefficients{}, fmt.Errorf("%w: physical size %gx%g nm", scan.ErrMalformedHeader, xSizeNm, ySizeNm)
	}
	c := Coefficients{
		NmPerPixelX: xSizeNm / float64(xPixels),
		NmPerPixelY: ySizeNm / float64(yPixels),
	}
	c.AvgAreaCoefficient = c.NmPerPixelX * c.NmPerPixelY
	return c, nil
}

// field names one header entry used for calibration.
type field struct {
	section string
	key     string
}

// fields lists the size and count lookups of one container format.
type fields struct {
	xSize, ySize     field
	xPixels, yPixels field
}

var formatFields = map[scan.Format]fields{
	scan.FormatA: {
		xSize:   field{"", raw16.KeyXSize},
		ySize:   field{"", raw16.KeyYSize},
		xPixels: field{"", raw16.KeyXPoints},
		yPixels: field{"", raw16.KeyYPoints},
	},
	scan.FormatB: {
		xSize:   field{"", stp.KeyXAmplitude},
		ySize:   field{"", stp.KeyYAmplitude},
		xPixels: field{"", stp.KeyCols},
		yPixels: field{"", stp.KeyRows},
	},
	scan.FormatC: {
		xSize:   field{mpp.SectionControl, mpp.KeyXAmplitude},
		ySize:   field{mpp.SectionControl, mpp.KeyYAmplitude},
		xPixels: field{mpp.SectionGeneral, mpp.KeyCols},
		yPixels: field{mpp.SectionGeneral, mpp.KeyRows},
	},
}

// FromVariant derives coefficients from the format-specific raw header.
// A missing field is ErrLookup, a non-numeric one ErrInvalidNumeric and a
// zero or negative size or count ErrMalformedHeader.
func FromVariant(v scan.Variant) (Coefficients, error) {
	if v == nil {
		return Coefficients{}, fmt.Errorf("%w: no header", scan.ErrLookup)
	}
	return FromRaw(v.Format(), v.Raw())
}

// FromRaw derives coefficients from raw header entries of format f.
func FromRaw(f scan.Format, raw scan.RawHeader) (Coefficients, error) {
	ff, ok := formatFields[f]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: no calibration fields for format %s", scan.ErrLookup, f)
	}

	xSize, err := length(raw, ff.xSize)
	if err != nil {
		return Coefficients{}, err
	}
	ySize, err := length(raw, ff.ySize)
	if err != nil {
		return Coefficients{}, err
	}
	xPixels, err := count(raw, ff.xPixels)
	if err != nil {
		return Coefficients{}, err
	}
	yPixels, err := count(raw, ff.yPixels)
	if err != nil {
		return Coefficients{}, err
	}
	return New(xSize, ySize, xPixels, yPixels)
}

func lookup(raw scan.RawHeader, f field) (string, error) {
	v, ok := raw.Value(f.section, f.key)
	if !ok {
		if f.section != "" {
			return "", fmt.Errorf("%w: %q in [%s]", scan.ErrLookup, f.key, f.section)
		}
		return "", fmt.Errorf("%w: %q", scan.ErrLookup, f.key)
	}
	return v, nil
}

func length(raw scan.RawHeader, f field) (float64, error) {
	s, err := lookup(raw, f)
	if err != nil {
		return 0, err
	}
	v, err := scan.ParseLength(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", f.key, err)
	}
	return v, nil
}

func count(raw scan.RawHeader, f field) (int, error) {
	s, err := lookup(raw, f)
	if err != nil {
		return 0, err
	}
	n, err := scan.ParseCount(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", f.key, err)
	}
	return n, nil
}

// PixelsFromNm converts a physical length into whole pixels along an axis
// with the given nm-per-pixel coefficient.
func PixelsFromNm(nm, coeff float64) int {
	if coeff <= 0 {
		return 0
	}
	return int(math.Floor(nm / coeff))
}

// AreaPixelsFromNm2 converts a physical area into whole pixels.
func AreaPixelsFromNm2(nm2 float64, c Coefficients) int {
	return PixelsFromNm(nm2, c.AvgAreaCoefficient)
}

// ToPhysical scales a pixel position into nanometres, independently per axis.
func (c Coefficients) ToPhysical(p geometry.Point2D) geometry.Point2D {
	return p.ScaleXY(c.NmPerPixelX, c.NmPerPixelY)
}
