package scan

import (
	"path/filepath"
)

// Dataset is the result of reading one scan file. Codecs never modify a
// dataset after returning it.
type Dataset struct {
	SourcePath string
	Header     Header
	Variant    Variant
	Frames     []*Frame
}

// Format returns the container format the dataset was read from.
func (d *Dataset) Format() Format {
	if d.Variant == nil {
		return FormatUnknown
	}
	return d.Variant.Format()
}

// Name returns the base file name of the source path.
func (d *Dataset) Name() string {
	return filepath.Base(d.SourcePath)
}

// MultiFrame reports whether per-frame processing applies.
func (d *Dataset) MultiFrame() bool {
	return d.Format() == FormatC
}
