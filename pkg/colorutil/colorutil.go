// Package colorutil provides shared color utilities.
package colorutil

import (
	"image/color"
)

// Common colors used for canvases and synthetic test pages.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Luma returns the Rec. 601 luma of c in the 0-255 range, ignoring alpha.
func Luma(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
}

// IsNearWhite reports whether c is within tol luma levels of white.
func IsNearWhite(c color.Color, tol float64) bool {
	return Luma(c) >= 255-tol
}
