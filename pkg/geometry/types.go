// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Box is an axis-aligned box given by its corners, in pixel space.
// (X1, Y1) is the top-left corner and (X2, Y2) the bottom-right.
type Box struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// NewBox creates a new Box from corner coordinates.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// IsValid reports whether the box has positive area.
func (b Box) IsValid() bool {
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

// Intersect returns the overlap of b and other. The result is invalid when
// the boxes do not overlap.
func (b Box) Intersect(other Box) Box {
	return Box{
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
		X2: math.Min(b.X2, other.X2),
		Y2: math.Min(b.Y2, other.Y2),
	}
}

// Near reports whether every corner coordinate is within tol of other's.
func (b Box) Near(other Box, tol float64) bool {
	return math.Abs(b.X1-other.X1) < tol &&
		math.Abs(b.Y1-other.Y1) < tol &&
		math.Abs(b.X2-other.X2) < tol &&
		math.Abs(b.Y2-other.Y2) < tol
}

// PixelRect converts the box to an integer rectangle, rounding outward so
// fractional detector coordinates never lose a partial pixel row or column.
func (b Box) PixelRect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X1)),
		int(math.Floor(b.Y1)),
		int(math.Ceil(b.X2)),
		int(math.Ceil(b.Y2)),
	)
}

// IntervalIoU returns the intersection-over-union of the 1-D intervals
// [aStart, aEnd] and [bStart, bEnd]. A non-positive union yields 0.
func IntervalIoU(aStart, aEnd, bStart, bEnd float64) float64 {
	overlap := math.Max(0, math.Min(aEnd, bEnd)-math.Max(aStart, bStart))
	union := (aEnd - aStart) + (bEnd - bStart) - overlap
	if union <= 0 {
		return 0
	}
	return overlap / union
}

// LineSegment is a straight segment between two points.
type LineSegment struct {
	Start Point2D `json:"start"`
	End   Point2D `json:"end"`
}

// NewLineSegment creates a segment from endpoint coordinates.
func NewLineSegment(x1, y1, x2, y2 float64) LineSegment {
	return LineSegment{Start: Point2D{X: x1, Y: y1}, End: Point2D{X: x2, Y: y2}}
}

// AngleDegrees returns the absolute angle of the segment from the horizontal
// axis, in [0, 180]. A vertical segment measures 90.
func (s LineSegment) AngleDegrees() float64 {
	return math.Abs(math.Atan2(s.End.Y-s.Start.Y, s.End.X-s.Start.X) * 180 / math.Pi)
}
