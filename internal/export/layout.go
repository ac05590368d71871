// Package export writes measurement artifacts: the spot table, labeled
// overlays and deviation maps, placed in purpose-named directories next to
// the source scan.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact directory names.
const (
	DirISETMap   = "ISETmap"
	DirL0        = "l0"
	DirSavedData = "saved_data"
)

// L0LogFile is the roughness log file name inside the l0 directory.
const L0LogFile = "l0.txt"

// Layout places the artifacts derived from one source file.
type Layout struct {
	// Root is the directory holding the source file.
	Root string
	// Stem is the source file name without its extension.
	Stem string
}

// NewLayout returns the layout for artifacts of source.
func NewLayout(source string) Layout {
	base := filepath.Base(source)
	return Layout{
		Root: filepath.Dir(source),
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Dir returns the directory for purpose. Frames of movie scans get their
// own subfolder per source and frame label.
func (l Layout) Dir(purpose, frame string) string {
	if frame == "" {
		return filepath.Join(l.Root, purpose)
	}
	return filepath.Join(l.Root, purpose, l.Stem, frame)
}

// Path returns the path of a named artifact, creating its directory.
func (l Layout) Path(purpose, frame, suffix string) (string, error) {
	dir := l.Dir(purpose, frame)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, l.Stem+suffix), nil
}

// L0Log returns the roughness log path shared by every scan in Root.
func (l Layout) L0Log() string {
	return filepath.Join(l.Root, DirL0, L0LogFile)
}
