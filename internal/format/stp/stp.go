// Package stp reads and writes the flat text header scan container
// (Format B): "key: value" lines up to the end marker, then one frame of
// little-endian float64 samples in row-major order.
package stp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"spm-spots/internal/format/textheader"
	"spm-spots/internal/scan"
)

// Header keys.
const (
	KeyCols       = "Number of columns"
	KeyRows       = "Number of rows"
	KeyXAmplitude = "X Amplitude"
	KeyYAmplitude = "Y Amplitude"
	KeyXOffset    = "X Offset"
	KeyYOffset    = "Y Offset"
	KeyZGain      = "Z Gain"
	KeyZAmplitude = "Z Amplitude"
	KeyChannel    = "Acquisition channel"
	KeyDataType   = "Image Data Type"
)

var preamble = []string{"WSxM file copyright UAM", "SxM Image file"}

// Header is the typed Format B header.
type Header struct {
	Cols       int
	Rows       int
	XAmplitude float64 // nm
	YAmplitude float64 // nm
	XOffset    float64 // nm
	YOffset    float64 // nm
	ZGain      float64
	ZAmplitude float64 // nm
	Channel    string

	raw scan.RawHeader
}

// ParseHeader builds a typed header from flat raw entries.
func ParseHeader(raw scan.RawHeader) (*Header, error) {
	h := &Header{raw: raw}
	var err error
	if h.Cols, err = textheader.RequireCount(raw, "", KeyCols); err != nil {
		return nil, err
	}
	if h.Rows, err = textheader.RequireCount(raw, "", KeyRows); err != nil {
		return nil, err
	}
	lengths := []struct {
		key string
		dst *float64
	}{
		{KeyXAmplitude, &h.XAmplitude},
		{KeyYAmplitude, &h.YAmplitude},
		{KeyXOffset, &h.XOffset},
		{KeyYOffset, &h.YOffset},
		{KeyZAmplitude, &h.ZAmplitude},
	}
	for _, l := range lengths {
		if *l.dst, err = textheader.RequireLength(raw, "", l.key); err != nil {
			return nil, err
		}
	}
	if h.ZGain, err = textheader.RequireFloat(raw, "", KeyZGain); err != nil {
		return nil, err
	}
	h.Channel, _ = raw.Value("", KeyChannel)
	return h, nil
}

// NewHeader builds a Format B header from a normalized header and a Z
// amplitude, as used when converting another container.
func NewHeader(n scan.Header, zAmplitude float64) *Header {
	channel := "Topography"
	if n.Mode == scan.ModeCurrent {
		channel = "Current"
	}
	return &Header{
		Cols:       n.Cols,
		Rows:       n.Rows,
		XAmplitude: n.XSizeNm,
		YAmplitude: n.YSizeNm,
		XOffset:    n.XOffsetNm,
		YOffset:    n.YOffsetNm,
		ZGain:      n.ZGain,
		ZAmplitude: zAmplitude,
		Channel:    channel,
	}
}

// Format implements scan.Variant.
func (h *Header) Format() scan.Format { return scan.FormatB }

// Normalize implements scan.Variant.
func (h *Header) Normalize() (scan.Header, error) {
	n := scan.Header{
		Rows:       h.Rows,
		Cols:       h.Cols,
		FrameCount: 1,
		XSizeNm:    h.XAmplitude,
		YSizeNm:    h.YAmplitude,
		XOffsetNm:  h.XOffset,
		YOffsetNm:  h.YOffset,
		ZGain:      h.ZGain,
		Mode:       scan.ParseImageMode(h.Channel),
		Raw:        h.Raw(),
	}
	return n, n.Validate()
}

// Raw implements scan.Variant. Headers built with NewHeader report the
// entries they would be written with.
func (h *Header) Raw() scan.RawHeader {
	if len(h.raw.Sections) > 0 {
		return h.raw
	}
	return scan.RawHeader{Sections: []scan.Section{{Entries: h.entries()}}}
}

// entries lists the template fields in vendor order.
func (h *Header) entries() []scan.Entry {
	nm := func(v float64) string { return scan.FormatFloat(v) + " nm" }
	channel := h.Channel
	if channel == "" {
		channel = "Topography"
	}
	return []scan.Entry{
		{Key: KeyXAmplitude, Value: nm(h.XAmplitude)},
		{Key: KeyYAmplitude, Value: nm(h.YAmplitude)},
		{Key: KeyXOffset, Value: nm(h.XOffset)},
		{Key: KeyYOffset, Value: nm(h.YOffset)},
		{Key: KeyZGain, Value: scan.FormatFloat(h.ZGain)},
		{Key: KeyCols, Value: strconv.Itoa(h.Cols)},
		{Key: KeyRows, Value: strconv.Itoa(h.Rows)},
		{Key: KeyZAmplitude, Value: nm(h.ZAmplitude)},
		{Key: KeyChannel, Value: channel},
		{Key: KeyDataType, Value: "double"},
	}
}

// MarshalHeader renders the vendor header template.
func MarshalHeader(h *Header) []byte {
	return textheader.Render(textheader.Document{
		Preamble: preamble,
		Sections: []scan.Section{{Entries: h.entries()}},
	})
}

// Decode reads a Format B scan from r. source is recorded as the dataset's
// source path.
func Decode(r io.Reader, source string) (*scan.Dataset, error) {
	br := bufio.NewReader(r)
	parsed, err := textheader.Read(br, false)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(parsed.Raw)
	if err != nil {
		return nil, err
	}
	norm, err := h.Normalize()
	if err != nil {
		return nil, err
	}

	data, err := textheader.ReadFloats(br, norm.Rows*norm.Cols)
	if err != nil {
		return nil, err
	}
	return &scan.Dataset{
		SourcePath: source,
		Header:     norm,
		Variant:    h,
		Frames:     []*scan.Frame{scan.NewFrame(0, norm.Rows, norm.Cols, data)},
	}, nil
}

// Encode writes the header template and the frame samples.
func Encode(w io.Writer, h *Header, frame *scan.Frame) error {
	rows, cols := frame.Dims()
	if rows != h.Rows || cols != h.Cols {
		return fmt.Errorf("%w: frame is %dx%d, header declares %dx%d", scan.ErrMalformedHeader, rows, cols, h.Rows, h.Cols)
	}
	if _, err := w.Write(MarshalHeader(h)); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	return textheader.WriteFloats(w, frame.Values())
}

// Read opens and decodes the file at path.
func Read(path string) (*scan.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", scan.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", scan.ErrIO, path, err)
	}
	ds, err := Decode(bytes.NewReader(data), path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Write stores ds at path. ds must hold a single frame; its header is
// taken from a Format B variant when present, otherwise derived from the
// normalized header with the frame's height span as Z amplitude.
func Write(path string, ds *scan.Dataset) error {
	if len(ds.Frames) != 1 {
		return fmt.Errorf("%w: format B holds one frame, dataset has %d", scan.ErrMalformedHeader, len(ds.Frames))
	}
	h, ok := ds.Variant.(*Header)
	if !ok {
		h = NewHeader(ds.Header, span(ds.Frames[0].Values()))
	}

	var buf bytes.Buffer
	if err := Encode(&buf, h, ds.Frames[0]); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", scan.ErrIO, path, err)
	}
	return nil
}

func span(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}
