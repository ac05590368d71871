// Package raw16 reads and writes the fixed binary header scan container
// (Format A): a packed little-endian header followed by one frame of
// signed 16-bit samples.
package raw16

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"

	"spm-spots/internal/scan"
)

// HeaderSize is the exact byte length of the packed header.
const HeaderSize = 50

// Header is the packed on-disk header. Field order and widths match the
// file layout; encoding/binary reads it without padding.
type Header struct {
	XPoints       uint16
	YPoints       uint16
	Mode          uint16 // 0 topography, 1 current
	ScanDirection uint16
	LineFlag      uint16
	ImageIndex    uint32
	XSize         float32 // nm
	YSize         float32 // nm
	XOffset       float32 // nm
	YOffset       float32 // nm
	ScanSpeed     float32
	Bias          float32
	ZGain         uint16
	CurrentGain   uint16
	Angle         float32
	Reserved      uint32
}

// Raw-header keys exposed for calibration lookups.
const (
	KeyXPoints = "X Points"
	KeyYPoints = "Y Points"
	KeyXSize   = "X Size"
	KeyYSize   = "Y Size"
)

// Format implements scan.Variant.
func (h *Header) Format() scan.Format { return scan.FormatA }

// ImageMode returns the image mode encoded in the header flags.
func (h *Header) ImageMode() scan.ImageMode {
	if h.Mode == 1 {
		return scan.ModeCurrent
	}
	return scan.ModeTopography
}

// Normalize implements scan.Variant. The raster is laid out as
// (XPoints, YPoints), so rows come from XPoints and columns from YPoints.
func (h *Header) Normalize() (scan.Header, error) {
	if h.XPoints == 0 || h.YPoints == 0 {
		return scan.Header{}, fmt.Errorf("%w: point counts %dx%d", scan.ErrMalformedHeader, h.XPoints, h.YPoints)
	}
	norm := scan.Header{
		Rows:       int(h.XPoints),
		Cols:       int(h.YPoints),
		FrameCount: 1,
		XSizeNm:    float64(h.XSize),
		YSizeNm:    float64(h.YSize),
		XOffsetNm:  float64(h.XOffset),
		YOffsetNm:  float64(h.YOffset),
		ZGain:      float64(h.ZGain),
		Mode:       h.ImageMode(),
		Raw:        h.Raw(),
	}
	return norm, norm.Validate()
}

// Raw implements scan.Variant with a flat key/value view of the fields.
func (h *Header) Raw() scan.RawHeader {
	f32 := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
	u := func(v uint64) string { return fmt.Sprintf("%d", v) }
	return scan.RawHeader{Sections: []scan.Section{{Entries: []scan.Entry{
		{Key: KeyXPoints, Value: u(uint64(h.XPoints))},
		{Key: KeyYPoints, Value: u(uint64(h.YPoints))},
		{Key: "Image Mode", Value: h.ImageMode().String()},
		{Key: "Scan Direction", Value: u(uint64(h.ScanDirection))},
		{Key: "Line Flag", Value: u(uint64(h.LineFlag))},
		{Key: "Image Index", Value: u(uint64(h.ImageIndex))},
		{Key: KeyXSize, Value: f32(h.XSize)},
		{Key: KeyYSize, Value: f32(h.YSize)},
		{Key: "X Offset", Value: f32(h.XOffset)},
		{Key: "Y Offset", Value: f32(h.YOffset)},
		{Key: "Scan Speed", Value: f32(h.ScanSpeed)},
		{Key: "Bias", Value: f32(h.Bias)},
		{Key: "Z Gain", Value: u(uint64(h.ZGain))},
		{Key: "Current Gain", Value: u(uint64(h.CurrentGain))},
		{Key: "Angle", Value: f32(h.Angle)},
	}}}}
}

// CurrentSample converts a raw count to current.
func CurrentSample(raw int16) float64 {
	return 20 * float64(raw) / 65536
}

// HeightSample converts a raw count to height using the Z gain stage.
func HeightSample(raw int16, zGain uint16) float64 {
	return 5.5 * math.Pow(4, float64(zGain)-1) * float64(raw) / 65536
}

// ZAmplitude returns the height span (max-min) of the raw counts under the
// header's Z gain. It is the Z amplitude written when converting to Format B.
func ZAmplitude(raw []int16, zGain uint16) float64 {
	if len(raw) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range raw {
		v := HeightSample(r, zGain)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// File is a decoded Format A scan with its raw counts kept for conversion.
type File struct {
	Header Header
	Counts []int16
}

// Decode reads a header and its raster from r.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := binary.Read(r, binary.LittleEndian, &f.Header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: incomplete header (need %d bytes)", scan.ErrIncompleteRead, HeaderSize)
		}
		return nil, fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	if f.Header.XPoints == 0 || f.Header.YPoints == 0 {
		return nil, fmt.Errorf("%w: point counts %dx%d", scan.ErrMalformedHeader, f.Header.XPoints, f.Header.YPoints)
	}

	n, err := scan.SampleCount(int(f.Header.XPoints), int(f.Header.YPoints), 1)
	if err != nil {
		return nil, err
	}
	f.Counts = make([]int16, n)
	if err := binary.Read(r, binary.LittleEndian, f.Counts); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: raster shorter than %d samples", scan.ErrIncompleteRead, n)
		}
		return nil, fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	return &f, nil
}

// Encode writes the header and raster counts to w.
func Encode(w io.Writer, f *File) error {
	n := int(f.Header.XPoints) * int(f.Header.YPoints)
	if len(f.Counts) != n {
		return fmt.Errorf("%w: %d counts for %dx%d points", scan.ErrMalformedHeader, len(f.Counts), f.Header.XPoints, f.Header.YPoints)
	}
	if err := binary.Write(w, binary.LittleEndian, &f.Header); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	if err := binary.Write(w, binary.LittleEndian, f.Counts); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	return nil
}

// Samples converts the raw counts into physical values for the header's
// image mode.
func (f *File) Samples() []float64 {
	out := make([]float64, len(f.Counts))
	current := f.Header.ImageMode() == scan.ModeCurrent
	for i, c := range f.Counts {
		if current {
			out[i] = CurrentSample(c)
		} else {
			out[i] = HeightSample(c, f.Header.ZGain)
		}
	}
	return out
}

// ZAmplitude returns the height span of the file's raster.
func (f *File) ZAmplitude() float64 {
	return ZAmplitude(f.Counts, f.Header.ZGain)
}

// Dataset builds the normalized dataset for the file.
func (f *File) Dataset(path string) (*scan.Dataset, error) {
	hdr, err := f.Header.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	h := f.Header
	return &scan.Dataset{
		SourcePath: path,
		Header:     hdr,
		Variant:    &h,
		Frames:     []*scan.Frame{scan.NewFrame(0, hdr.Rows, hdr.Cols, f.Samples())},
	}, nil
}

// ReadFile opens and decodes the file at path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", scan.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", scan.ErrIO, path, err)
	}
	defer fh.Close()

	f, err := Decode(bufio.NewReader(fh))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Read opens the file at path and returns its dataset.
func Read(path string) (*scan.Dataset, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Dataset(path)
}

// Counts recovers the raw counts behind physical samples converted under
// this header. Samples produced by Samples round-trip exactly.
func (h *Header) Counts(samples []float64) []int16 {
	scale := 5.5 * math.Pow(4, float64(h.ZGain)-1)
	if h.ImageMode() == scan.ModeCurrent {
		scale = 20
	}
	out := make([]int16, len(samples))
	for i, v := range samples {
		c := math.Round(v * 65536 / scale)
		out[i] = int16(max(math.MinInt16, min(math.MaxInt16, c)))
	}
	return out
}
