package textheader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"spm-spots/internal/scan"
)

// chunkSize is the read size used by ReadFloats, a multiple of 8.
const chunkSize = 64 << 10

// ReadFloats reads up to n little-endian float64 values. A short stream is
// not an error: the values that were fully present are returned. Memory
// grows with the bytes actually read, not with n.
func ReadFloats(r io.Reader, n int) ([]float64, error) {
	var out []float64
	buf := make([]byte, chunkSize)
	for len(out) < n {
		want := min(n-len(out), chunkSize/8)
		got, err := io.ReadFull(r, buf[:want*8])
		for i := 0; i+8 <= got; i += 8 {
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(buf[i:])))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", scan.ErrIO, err)
		}
	}
	return out, nil
}

// WriteFloats writes values as little-endian float64.
func WriteFloats(w io.Writer, values []float64) error {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrIO, err)
	}
	return nil
}
