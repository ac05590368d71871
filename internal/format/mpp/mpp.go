// Package mpp reads and writes the sectioned text header movie container
// (Format C): bracketed sections of "key: value" lines up to the end
// marker, then consecutive row-major float64 frames in acquisition order.
package mpp

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

// Section names.
const (
	SectionGeneral = "General Info"
	SectionControl = "Control"
)

// Header keys.
const (
	KeyFrames     = "Number of Frames"
	KeyCols       = "Number of columns"
	KeyRows       = "Number of rows"
	KeyDataType   = "Image Data Type"
	KeyXAmplitude = "X Amplitude"
	KeyYAmplitude = "Y Amplitude"
	KeyXOffset    = "X Offset"
	KeyYOffset    = "Y Offset"
	KeyZGain      = "Z Gain"
	KeyChannel    = "Acquisition channel"
)

var preamble = []string{"WSxM file copyright UAM", "SxM Image file"}

// Header is the typed Format C header.
type Header struct {
	Frames     int
	Cols       int
	Rows       int
	XAmplitude float64 // nm
	YAmplitude float64 // nm
	XOffset    float64 // nm
	YOffset    float64 // nm
	ZGain      float64
	Channel    string

	raw scan.RawHeader
}

// ParseHeader builds a typed header from sectioned raw entries.
func ParseHeader(raw scan.RawHeader) (*Header, error) {
	h := &Header{raw: raw}
	counts := []struct {
		key string
		dst *int
	}{
		{KeyFrames, &h.Frames},
		{KeyCols, &h.Cols},
		{KeyRows, &h.Rows},
	}
	for _, c := range counts {
		n, err := textheader.RequireCount(raw, SectionGeneral, c.key)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	lengths := []struct {
		key string
		dst *float64
	}{
		{KeyXAmplitude, &h.XAmplitude},
		{KeyYAmplitude, &h.YAmplitude},
		{KeyXOffset, &h.XOffset},
		{KeyYOffset, &h.YOffset},
	}
	for _, l := range lengths {
		v, err := textheader.RequireLength(raw, SectionControl, l.key)
		if err != nil {
			return nil, err
		}
		*l.dst = v
	}
	gain, err := textheader.RequireFloat(raw, SectionControl, KeyZGain)
	if err != nil {
		return nil, err
	}
	h.ZGain = gain
	h.Channel, _ = raw.Value(SectionControl, KeyChannel)
	return h, nil
}

// NewHeader builds a Format C header from a normalized header.
func NewHeader(n scan.Header) *Header {
	channel := "Topography"
	if n.Mode == scan.ModeCurrent {
		channel = "Current"
	}
	return &Header{
		Frames:     n.FrameCount,
		Cols:       n.Cols,
		Rows:       n.Rows,
		XAmplitude: n.XSizeNm,
		YAmplitude: n.YSizeNm,
		XOffset:    n.XOffsetNm,
		YOffset:    n.YOffsetNm,
		ZGain:      n.ZGain,
		Channel:    channel,
	}
}

// Format implements scan.Variant.
func (h *Header) Format() scan.Format { return scan.FormatC }

// Normalize implements scan.Variant.
func (h *Header) Normalize() (scan.Header, error) {
	n := scan.Header{
		Rows:       h.Rows,
		Cols:       h.Cols,
		FrameCount: h.Frames,
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

// Raw implements scan.Variant.
func (h *Header) Raw() scan.RawHeader {
	if len(h.raw.Sections) > 0 {
		return h.raw
	}
	return scan.RawHeader{Sections: h.sections()}
}

// sections lists the template sections followed by any extra entries and
// sections carried over from the header the dataset was read with.
func (h *Header) sections() []scan.Section {
	nm := func(v float64) string { return scan.FormatFloat(v) + " nm" }
	channel := h.Channel
	if channel == "" {
		channel = "Topography"
	}
	out := []scan.Section{
		{Name: SectionGeneral, Entries: []scan.Entry{
			{Key: KeyFrames, Value: strconv.Itoa(h.Frames)},
			{Key: KeyCols, Value: strconv.Itoa(h.Cols)},
			{Key: KeyRows, Value: strconv.Itoa(h.Rows)},
			{Key: KeyDataType, Value: "double"},
		}},
		{Name: SectionControl, Entries: []scan.Entry{
			{Key: KeyXAmplitude, Value: nm(h.XAmplitude)},
			{Key: KeyYAmplitude, Value: nm(h.YAmplitude)},
			{Key: KeyXOffset, Value: nm(h.XOffset)},
			{Key: KeyYOffset, Value: nm(h.YOffset)},
			{Key: KeyZGain, Value: scan.FormatFloat(h.ZGain)},
			{Key: KeyChannel, Value: channel},
		}},
	}

	for _, s := range h.raw.Sections {
		if s.Name == "" {
			continue
		}
		idx := -1
		for i := range out {
			if out[i].Name == s.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			out = append(out, scan.Section{Name: s.Name})
			idx = len(out) - 1
		}
		for _, e := range s.Entries {
			if !textheader.Contains(out[idx].Entries, e.Key) {
				out[idx].Entries = append(out[idx].Entries, e)
			}
		}
	}
	return out
}

// MarshalHeader renders the sectioned header with its restated size.
func MarshalHeader(h *Header) []byte {
	return textheader.Render(textheader.Document{Preamble: preamble, Sections: h.sections()})
}

// Decode reads a Format C movie from r. Frames are emitted in file order;
// a truncated tail ends the last frame early and frames with no data at all
// are not emitted.
func Decode(r io.Reader, source string) (*scan.Dataset, error) {
	br := bufio.NewReader(r)
	parsed, err := textheader.Read(br, true)
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

	per := norm.Rows * norm.Cols
	data, err := textheader.ReadFloats(br, per*norm.FrameCount)
	if err != nil {
		return nil, err
	}

	ds := &scan.Dataset{SourcePath: source, Header: norm, Variant: h}
	for i := 0; i < norm.FrameCount; i++ {
		start := i * per
		if start >= len(data) {
			break
		}
		end := min(start+per, len(data))
		ds.Frames = append(ds.Frames, scan.NewFrame(i, norm.Rows, norm.Cols, data[start:end]))
	}
	return ds, nil
}

// Encode writes the header and every frame in order.
func Encode(w io.Writer, h *Header, frames []*scan.Frame) error {
	if len(frames) != h.Frames {
		return fmt.Errorf("%w: header declares %d frames, got %d", scan.ErrMalformedHeader, h.Frames, len(frames))
	}
	if _, err := w.Write(MarshalHeader(h)); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	for _, f := range frames {
		rows, cols := f.Dims()
		if rows != h.Rows || cols != h.Cols {
			return fmt.Errorf("%w: frame %d is %dx%d, header declares %dx%d",
				scan.ErrMalformedHeader, f.Index, rows, cols, h.Rows, h.Cols)
		}
		if err := textheader.WriteFloats(w, f.Values()); err != nil {
			return err
		}
	}
	return nil
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

// Write stores ds at path. The header is taken from a Format C variant when
// present; the frame count always follows the frames being written.
func Write(path string, ds *scan.Dataset) error {
	var h Header
	if v, ok := ds.Variant.(*Header); ok {
		h = *v
	} else {
		h = *NewHeader(ds.Header)
	}
	h.Frames = len(ds.Frames)

	var buf bytes.Buffer
	if err := Encode(&buf, &h, ds.Frames); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", scan.ErrIO, path, err)
	}
	return nil
}
