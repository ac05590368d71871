package textheader

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm-spots/internal/scan"
)

func TestReadSectioned(t *testing.T) {
	src := "WSxM file copyright UAM\nImage header size: 99\n\n[General Info]\n\n    Number of rows: 4\n\n[Control]\n    X Amplitude: 10 nm\n[Header end]\nDATA"
	r := bufio.NewReader(strings.NewReader(src))
	p, err := Read(r, true)
	require.NoError(t, err)

	v, ok := p.Raw.Value("General Info", "Number of rows")
	require.True(t, ok)
	assert.Equal(t, "4", v)
	v, ok = p.Raw.Value("Control", "X Amplitude")
	require.True(t, ok)
	assert.Equal(t, "10 nm", v)
	v, ok = p.Raw.Value("", SizeKey)
	require.True(t, ok)
	assert.Equal(t, "99", v)

	assert.Equal(t, len(src)-len("DATA"), p.Size)
	rest, _ := r.ReadString(0)
	assert.Equal(t, "DATA", rest)
}

func TestReadFlatIgnoresBrackets(t *testing.T) {
	src := "[Control]\r\nNumber of rows: 4\r\n[Other]\r\nNumber of columns: 5\r\n[Header end]\r\n"
	p, err := Read(bufio.NewReader(strings.NewReader(src)), false)
	require.NoError(t, err)
	require.Len(t, p.Raw.Sections, 1)
	assert.Equal(t, "", p.Raw.Sections[0].Name)
	assert.Equal(t, "5", p.Raw.Flat()["Number of columns"])
}

func TestReadMissingEndMarker(t *testing.T) {
	_, err := Read(bufio.NewReader(strings.NewReader("Number of rows: 4\n")), false)
	assert.ErrorIs(t, err, scan.ErrMalformedHeader)
}

func TestRenderSizeIsSelfConsistent(t *testing.T) {
	doc := Document{
		Preamble: []string{"WSxM file copyright UAM", "SxM Image file"},
		Sections: []scan.Section{
			{Name: "General Info", Entries: []scan.Entry{{Key: "Number of rows", Value: "4"}}},
			{Name: "Control", Entries: []scan.Entry{{Key: "X Amplitude", Value: "10 nm"}}},
		},
	}
	out := Render(doc)

	p, err := Read(bufio.NewReader(bytes.NewReader(out)), true)
	require.NoError(t, err)
	assert.Equal(t, len(out), p.Size)

	size, ok := p.Raw.Value("", SizeKey)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(len(out)), size)
	assert.True(t, bytes.HasSuffix(out, []byte(EndMarker+"\r\n")))
}

func TestRequireHelpers(t *testing.T) {
	var raw scan.RawHeader
	raw.Set("", "Number of rows", "abc")
	raw.Set("", "X Amplitude", "2 µm")

	_, err := RequireCount(raw, "", "Number of rows")
	assert.ErrorIs(t, err, scan.ErrMalformedHeader)
	assert.ErrorIs(t, err, scan.ErrInvalidNumeric)

	_, err = RequireCount(raw, "", "Number of columns")
	assert.ErrorIs(t, err, scan.ErrMalformedHeader)
	assert.Contains(t, err.Error(), "Number of columns")

	nm, err := RequireLength(raw, "", "X Amplitude")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, nm)
}

func TestFloatsShortRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloats(&buf, []float64{1.5, -2, 3.25}))
	data := buf.Bytes()[:8*2+3]

	got, err := ReadFloats(bytes.NewReader(data), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, got)

	got, err = ReadFloats(bytes.NewReader(buf.Bytes()), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, got)
}
