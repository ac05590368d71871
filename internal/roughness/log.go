package roughness

import (
	"fmt"
	"os"
	"path/filepath"

	"spm-spots/internal/scan"
)

// Log is the plain-text roughness log. Every computed value is appended
// as one line; the file is never truncated.
type Log struct {
	Path string
}

// NewLog returns a log writing to path.
func NewLog(path string) *Log {
	return &Log{Path: path}
}

// Line formats one log line. label is empty for single-frame scans.
func Line(filename, label string, l0 float64) string {
	if label != "" {
		return fmt.Sprintf("l0 for %s %s: %s\n", filename, label, scan.FormatFloat(l0))
	}
	return fmt.Sprintf("l0 for %s: %s\n", filename, scan.FormatFloat(l0))
}

// Append writes one line for filename and frame label.
func (l *Log) Append(filename, label string, l0 float64) error {
	if dir := filepath.Dir(l.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open roughness log: %w", err)
	}
	if _, err := f.WriteString(Line(filename, label, l0)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write roughness log: %w", err)
	}
	return f.Close()
}
