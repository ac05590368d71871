package stp

import (
	"bufio"
	"bytes"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/format/textheader"
	"spm-spots/internal/scan"
)

func sampleHeader() *Header {
	return &Header{
		Cols: 3, Rows: 2,
		XAmplitude: 100.125, YAmplitude: 50,
		XOffset: -1.5, YOffset: 0.1,
		ZGain:      2,
		ZAmplitude: 1.0 / 3.0,
		Channel:    "Topography",
	}
}

func sampleFrame(t *testing.T) *scan.Frame {
	t.Helper()
	f, err := scan.FrameFromRows(0, [][]float64{{0.1, -2.5, math.Pi}, {1e-300, 0, 42}})
	require.NoError(t, err)
	return f
}

func encodeSample(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleHeader(), sampleFrame(t)))
	return buf.Bytes()
}

func TestRoundTripIsExact(t *testing.T) {
	ds, err := Decode(bytes.NewReader(encodeSample(t)), "a.stp")
	require.NoError(t, err)

	got := ds.Variant.(*Header)
	if diff := cmp.Diff(sampleHeader(), got, cmpopts.IgnoreUnexported(Header{})); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, sampleFrame(t).Values(), ds.Frames[0].Values())
	assert.False(t, ds.Frames[0].Truncated())

	path := filepath.Join(t.TempDir(), "b.stp")
	require.NoError(t, Write(path, ds))
	again, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Header.Rows, again.Header.Rows)
	assert.Equal(t, ds.Header.XSizeNm, again.Header.XSizeNm)
	assert.Equal(t, ds.Frames[0].Values(), again.Frames[0].Values())
}

func TestHeaderSizeFieldMatchesLength(t *testing.T) {
	hdr := MarshalHeader(sampleHeader())
	p, err := textheader.Read(bufio.NewReader(bytes.NewReader(hdr)), false)
	require.NoError(t, err)
	v, ok := p.Raw.Value("", textheader.SizeKey)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(len(hdr)), v)
}

func TestTemplateFieldOrder(t *testing.T) {
	hdr := string(MarshalHeader(sampleHeader()))
	order := []string{"WSxM file copyright UAM", textheader.SizeKey, KeyXAmplitude, KeyYAmplitude,
		KeyXOffset, KeyYOffset, KeyZGain, KeyCols, KeyRows, KeyZAmplitude, KeyChannel, KeyDataType,
		textheader.EndMarker}
	last := -1
	for _, key := range order {
		idx := strings.Index(hdr, key)
		require.Greater(t, idx, last, key)
		last = idx
	}
	assert.Contains(t, hdr, "    X Amplitude: 100.125 nm\r\n")
}

func TestTruncatedDataEndsFrame(t *testing.T) {
	data := encodeSample(t)
	ds, err := Decode(bytes.NewReader(data[:len(data)-12]), "t.stp")
	require.NoError(t, err)
	f := ds.Frames[0]
	assert.Equal(t, 4, f.Samples)
	assert.True(t, f.Truncated())
	assert.Equal(t, 0.0, f.At(1, 1))
}

func TestMissingRowsIsMalformed(t *testing.T) {
	src := strings.Replace(string(encodeSample(t)), "Number of rows: 2", "Rows: 2", 1)
	_, err := Decode(strings.NewReader(src), "m.stp")
	assert.ErrorIs(t, err, scan.ErrMalformedHeader)
	assert.Contains(t, err.Error(), KeyRows)
}

func TestRejectsZeroOrBadDimensions(t *testing.T) {
	for _, repl := range []string{"Number of columns: 0", "Number of columns: three"} {
		src := strings.Replace(string(encodeSample(t)), "Number of columns: 3", repl, 1)
		_, err := Decode(strings.NewReader(src), "z.stp")
		assert.ErrorIs(t, err, scan.ErrMalformedHeader, repl)
	}
}

func TestOversizedDimensionsAreMalformed(t *testing.T) {
	for _, dims := range [][2]int{{1_000_000_000, 1_000_000_000}, {1 << 14, 1 << 14}} {
		h := sampleHeader()
		h.Rows, h.Cols = dims[0], dims[1]
		data := append(MarshalHeader(h), make([]byte, 64)...)

		var err error
		assert.NotPanics(t, func() { _, err = Decode(bytes.NewReader(data), "huge.stp") })
		assert.ErrorIs(t, err, scan.ErrMalformedHeader)
	}
}

func TestLargeDeclaredFrameReadsOnlyPresentData(t *testing.T) {
	h := sampleHeader()
	h.Rows, h.Cols = 1024, 1024
	data := append(MarshalHeader(h), make([]byte, 3*8)...)

	ds, err := Decode(bytes.NewReader(data), "short.stp")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Frames[0].Samples)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.stp"))
	assert.ErrorIs(t, err, scan.ErrFileNotFound)
}

func TestWriteDerivesHeaderForForeignDataset(t *testing.T) {
	frame := sampleFrame(t)
	ds := &scan.Dataset{
		Header: scan.Header{Rows: 2, Cols: 3, FrameCount: 1, XSizeNm: 10, YSizeNm: 20, Mode: scan.ModeCurrent},
		Frames: []*scan.Frame{frame},
	}
	path := filepath.Join(t.TempDir(), "c.stp")
	require.NoError(t, Write(path, ds))

	got, err := Read(path)
	require.NoError(t, err)
	h := got.Variant.(*Header)
	assert.Equal(t, 42.0-(-2.5), h.ZAmplitude)
	assert.Equal(t, scan.ModeCurrent, got.Header.Mode)
}
