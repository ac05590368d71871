// Package colorutil provides shared color utilities for exported overlays.
package colorutil

import (
	"image/color"
)

// Common overlay colors used for contour and label rendering.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

var palette = []color.RGBA{Red, Green, Cyan, Magenta, Yellow, Blue}

// LabelColor returns the overlay color for the i-th labeled spot.
// Colors cycle so neighbouring spot indices stay distinguishable.
func LabelColor(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// GrayLevel maps v from [lo, hi] onto an 8-bit gray value, clamping values
// outside the range. A flat range maps everything to mid gray.
func GrayLevel(v, lo, hi float64) uint8 {
	if hi <= lo {
		return 128
	}
	t := (v - lo) / (hi - lo)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 255
	}
	return uint8(t*255 + 0.5)
}
