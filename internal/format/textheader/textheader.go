// Package textheader reads and renders the line-oriented "key: value" scan
// headers terminated by an end marker. Both the flat single-frame container
// and the sectioned movie container are built on it.
package textheader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"spm-spots/internal/scan"
)

const (
	// EndMarker terminates every text header.
	EndMarker = "[Header end]"

	// SizeKey is the self-reported header byte length.
	SizeKey = "Image header size"

	lineEnd = "\r\n"
	indent  = "    "
)

// Parsed is a header read from a stream.
type Parsed struct {
	Raw scan.RawHeader
	// Size is the number of bytes consumed, including the end marker line.
	Size int
}

// Read consumes header lines from r up to and including the end marker.
//
// With sectioned set, "[Name]" lines open a new section; entries before the
// first section go into the unnamed section. Without it every entry lands in
// the unnamed section and bracket lines are ignored. Lines without ": " are
// skipped.
func Read(r *bufio.Reader, sectioned bool) (Parsed, error) {
	var p Parsed
	current := ""
	for {
		line, err := r.ReadString('\n')
		p.Size += len(line)
		trimmed := strings.TrimSpace(line)

		if trimmed == EndMarker {
			return p, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p, fmt.Errorf("%w: missing %q", scan.ErrMalformedHeader, EndMarker)
			}
			return p, fmt.Errorf("%w: %w", scan.ErrIO, err)
		}

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if sectioned {
				current = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
				if _, ok := p.Raw.Section(current); !ok {
					p.Raw.Sections = append(p.Raw.Sections, scan.Section{Name: current})
				}
			}
			continue
		}

		key, value, ok := strings.Cut(trimmed, ": ")
		if !ok {
			if k, found := strings.CutSuffix(trimmed, ":"); found && k != "" {
				key, value, ok = k, "", true
			}
		}
		if !ok {
			continue
		}
		p.Raw.Set(current, strings.TrimSpace(key), strings.TrimSpace(value))
	}
}

// Document describes a header to render.
type Document struct {
	// Preamble lines precede the header size line.
	Preamble []string
	// Sections are rendered in order. An unnamed section is written without
	// a bracket line.
	Sections []scan.Section
}

// Render serializes the document, restating SizeKey so that it equals the
// byte length of the returned header.
func Render(doc Document) []byte {
	size := 0
	for {
		out := render(doc, size)
		if len(out) == size {
			return out
		}
		size = len(out)
	}
}

func render(doc Document, size int) []byte {
	var b strings.Builder
	for _, line := range doc.Preamble {
		b.WriteString(line)
		b.WriteString(lineEnd)
	}
	b.WriteString(SizeKey)
	b.WriteString(": ")
	b.WriteString(strconv.Itoa(size))
	b.WriteString(lineEnd)
	b.WriteString(lineEnd)

	for _, s := range doc.Sections {
		if s.Name != "" {
			b.WriteString("[" + s.Name + "]")
			b.WriteString(lineEnd)
			b.WriteString(lineEnd)
		}
		for _, e := range s.Entries {
			b.WriteString(indent)
			b.WriteString(e.Key)
			b.WriteString(": ")
			b.WriteString(e.Value)
			b.WriteString(lineEnd)
		}
		b.WriteString(lineEnd)
	}
	b.WriteString(EndMarker)
	b.WriteString(lineEnd)
	return []byte(b.String())
}

// Require returns the value of key in section, or ErrMalformedHeader when it
// is absent.
func Require(raw scan.RawHeader, section, key string) (string, error) {
	v, ok := raw.Value(section, key)
	if !ok {
		if section == "" {
			return "", fmt.Errorf("%w: missing %q", scan.ErrMalformedHeader, key)
		}
		return "", fmt.Errorf("%w: missing %q in [%s]", scan.ErrMalformedHeader, key, section)
	}
	return v, nil
}

// RequireCount looks up key and parses it as a positive count.
func RequireCount(raw scan.RawHeader, section, key string) (int, error) {
	v, err := Require(raw, section, key)
	if err != nil {
		return 0, err
	}
	n, err := scan.ParseCount(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", scan.ErrMalformedHeader, key, err)
	}
	return n, nil
}

// RequireLength looks up key and parses it as a length in nanometres.
func RequireLength(raw scan.RawHeader, section, key string) (float64, error) {
	v, err := Require(raw, section, key)
	if err != nil {
		return 0, err
	}
	n, err := scan.ParseLength(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", scan.ErrMalformedHeader, key, err)
	}
	return n, nil
}

// RequireFloat looks up key and parses it as a plain number.
func RequireFloat(raw scan.RawHeader, section, key string) (float64, error) {
	v, err := Require(raw, section, key)
	if err != nil {
		return 0, err
	}
	n, err := scan.ParseFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", scan.ErrMalformedHeader, key, err)
	}
	return n, nil
}

// Contains reports whether entries already hold key.
func Contains(entries []scan.Entry, key string) bool {
	for _, e := range entries {
		if e.Key == key {
			return true
		}
	}
	return false
}
