package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// lengthUnits maps header unit suffixes onto a nanometre multiplier.
var lengthUnits = map[string]float64{
	"":   1,
	"nm": 1,
	"å":  0.1,
	"a":  0.1,
	"pm": 1e-3,
	"µm": 1e3,
	"um": 1e3,
	"mm": 1e6,
}

// splitValue separates the leading number of a header value from its unit.
func splitValue(s string) (string, string) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

// ParseFloat parses the leading number of a header value, ignoring any
// unit suffix.
func ParseFloat(s string) (float64, error) {
	num, _ := splitValue(s)
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidNumeric, s)
	}
	return v, nil
}

// ParseLength parses a header length such as "250 nm" or "1.5 µm" and
// returns it in nanometres. A missing unit is taken as nanometres.
func ParseLength(s string) (float64, error) {
	num, unit := splitValue(s)
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a length", ErrInvalidNumeric, s)
	}
	mul, ok := lengthUnits[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown length unit %q", ErrInvalidNumeric, unit)
	}
	return v * mul, nil
}

// ParseCount parses a strictly positive integer count such as a row number.
func ParseCount(s string) (int, error) {
	num, _ := splitValue(s)
	v, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidNumeric, s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: count must be positive, got %d", ErrMalformedHeader, v)
	}
	return v, nil
}

// FormatFloat renders v as the shortest decimal that reads back exactly.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
