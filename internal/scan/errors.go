package scan

import "errors"

// Error kinds shared by the codecs, calibration and roughness packages.
// Callers match them with errors.Is; the wrapped message carries the
// offending path and field.
var (
	// ErrMalformedHeader marks a required header field that is missing,
	// zero or otherwise invalid.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrIncompleteRead marks fewer bytes than a fixed-size structure needs.
	ErrIncompleteRead = errors.New("incomplete read")

	// ErrFileNotFound marks a scan path that does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrIO marks any other failure reading or writing a scan file.
	ErrIO = errors.New("i/o error")

	// ErrInvalidNumeric marks a value that cannot be used numerically,
	// such as a negative mean under a square root.
	ErrInvalidNumeric = errors.New("invalid numeric value")

	// ErrLookup marks a format-specific field absent from a header map.
	ErrLookup = errors.New("header field not found")
)
