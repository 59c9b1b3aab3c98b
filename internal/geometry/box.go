// Package geometry provides axis-aligned bounding box operations in
// image pixel space.
package geometry

import "math"

// Box is an axis-aligned rectangle in pixel coordinates with X1 < X2
// and Y1 < Y2. The origin is the top-left corner of the frame.
type Box struct {
	X1, Y1, X2, Y2 int
}

// NewBox returns a Box, normalising swapped corners.
func NewBox(x1, y1, x2, y2 int) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area in square pixels.
func (b Box) Area() int { return b.Width() * b.Height() }

// Empty reports whether the box has zero or negative extent.
func (b Box) Empty() bool { return b.X2 <= b.X1 || b.Y2 <= b.Y1 }

// Center returns the box center point.
func (b Box) Center() (x, y float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y1+b.Y2) / 2
}

// CenterDistance returns the Euclidean distance between the centers of
// two boxes.
func CenterDistance(a, b Box) float64 {
	ax, ay := a.Center()
	bx, by := b.Center()
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}

// Intersect returns the overlapping region of two boxes. The result is
// Empty when the boxes do not overlap.
func Intersect(a, b Box) Box {
	return Box{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}
}

// IntersectionRatio returns area(a ∩ b) / area(b). The denominator is
// the second box, so a small detection fully inside a large region
// scores 1.0. Returns 0 for disjoint boxes or a degenerate b.
func IntersectionRatio(a, b Box) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	inter := Intersect(a, b)
	if inter.Empty() {
		return 0
	}
	return float64(inter.Area()) / float64(b.Area())
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
func IoU(a, b Box) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}
	inter := Intersect(a, b)
	if inter.Empty() {
		return 0
	}
	union := a.Area() + b.Area() - inter.Area()
	if union <= 0 {
		return 0
	}
	return float64(inter.Area()) / float64(union)
}

// Pad grows the box by pad pixels on every side, clamped to the frame
// bounds [0, width) x [0, height).
func (b Box) Pad(pad, width, height int) Box {
	return Box{
		X1: max(0, b.X1-pad),
		Y1: max(0, b.Y1-pad),
		X2: min(width, b.X2+pad),
		Y2: min(height, b.Y2+pad),
	}
}

// Clamp restricts the box to the frame bounds [0, width) x [0, height).
func (b Box) Clamp(width, height int) Box {
	return b.Pad(0, width, height)
}
