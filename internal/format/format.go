// Package format dispatches scan files to their codec by extension and
// converts between containers.
package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"spm-spots/internal/format/mpp"
	"spm-spots/internal/format/raw16"
	"spm-spots/internal/format/stp"
	"spm-spots/internal/scan"
)

// File extensions of the supported containers.
const (
	ExtA = ".img"
	ExtB = ".stp"
	ExtC = ".mpp"
)

// Detect returns the container format implied by the path's extension.
func Detect(path string) scan.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtA:
		return scan.FormatA
	case ExtB:
		return scan.FormatB
	case ExtC:
		return scan.FormatC
	default:
		return scan.FormatUnknown
	}
}

// Extension returns the canonical file extension for f.
func Extension(f scan.Format) string {
	switch f {
	case scan.FormatA:
		return ExtA
	case scan.FormatB:
		return ExtB
	case scan.FormatC:
		return ExtC
	default:
		return ""
	}
}

// Open reads the scan at path with the codec matching its extension.
func Open(path string) (*scan.Dataset, error) {
	switch Detect(path) {
	case scan.FormatA:
		return raw16.Read(path)
	case scan.FormatB:
		return stp.Read(path)
	case scan.FormatC:
		return mpp.Read(path)
	default:
		return nil, fmt.Errorf("unsupported scan file extension %q: %s", filepath.Ext(path), path)
	}
}

// Write stores ds at path. Only Format B and Format C are writable.
func Write(path string, ds *scan.Dataset) error {
	switch Detect(path) {
	case scan.FormatB:
		return stp.Write(path, ds)
	case scan.FormatC:
		return mpp.Write(path, ds)
	default:
		return fmt.Errorf("format of %s is not writable", path)
	}
}

// ToSTP converts a single-frame dataset into a Format B dataset. A Format A
// source has its Z amplitude derived from the raw counts under the header's
// Z gain; other sources use the frame's height span.
func ToSTP(ds *scan.Dataset) (*scan.Dataset, error) {
	if len(ds.Frames) != 1 {
		return nil, fmt.Errorf("%w: %s has %d frames, format B holds one", scan.ErrMalformedHeader, ds.Name(), len(ds.Frames))
	}
	if h, ok := ds.Variant.(*stp.Header); ok {
		out := *ds
		out.Variant = h
		return &out, nil
	}

	frame := ds.Frames[0]
	var zAmp float64
	if h, ok := ds.Variant.(*raw16.Header); ok {
		zAmp = raw16.ZAmplitude(h.Counts(frame.Values()), h.ZGain)
	} else {
		lo, hi := span(frame.Values())
		zAmp = hi - lo
	}

	n := ds.Header
	n.FrameCount = 1
	h := stp.NewHeader(n, zAmp)
	norm, err := h.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds.Name(), err)
	}
	return &scan.Dataset{
		SourcePath: strings.TrimSuffix(ds.SourcePath, filepath.Ext(ds.SourcePath)) + ExtB,
		Header:     norm,
		Variant:    h,
		Frames:     []*scan.Frame{scan.NewFrame(0, norm.Rows, norm.Cols, frame.Values())},
	}, nil
}

// Convert reads src and writes it to dst in the format implied by dst's
// extension. frame selects the frame written when a movie is converted to a
// single-frame container; it is ignored otherwise.
func Convert(src, dst string, frame int) error {
	ds, err := Open(src)
	if err != nil {
		return err
	}
	if Detect(dst) == scan.FormatB && len(ds.Frames) > 1 {
		if frame < 0 || frame >= len(ds.Frames) {
			return fmt.Errorf("frame %d out of range for %s (%d frames)", frame, src, len(ds.Frames))
		}
		single := *ds
		single.Variant = nil
		single.Header.FrameCount = 1
		single.Frames = []*scan.Frame{scan.NewFrame(0, ds.Header.Rows, ds.Header.Cols, ds.Frames[frame].Values())}
		ds = &single
	}
	if Detect(dst) == scan.FormatB {
		if ds, err = ToSTP(ds); err != nil {
			return err
		}
	}
	return Write(dst, ds)
}

func span(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
