package geom

import (
	"fmt"
	"image"
)

// Rect is an integer region of a frame in pixel coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Pad grows the rectangle by p pixels on every side. A negative p shrinks it;
// the result may become invalid and callers must check Valid.
func (r Rect) Pad(p int) Rect {
	return Rect{
		X:      r.X - p,
		Y:      r.Y - p,
		Width:  r.Width + 2*p,
		Height: r.Height + 2*p,
	}
}

// Image converts to the standard library representation.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// FromImage converts an image.Rectangle. Unlike image.Rectangle.Canon it does
// not swap inverted corners, so an inverted input yields a negative size.
func FromImage(b image.Rectangle) Rect {
	return Rect{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
}

// Normalize maps a raw detector box to a detection result. Boxes with a
// negative or zero dimension are reported as no detection rather than clamped.
func Normalize(r Rect) (Rect, bool) {
	if !r.Valid() {
		return Rect{}, false
	}
	return r, true
}

// Size is a width/height pair used to request generated content.
type Size struct {
	Width, Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Square returns a size with equal sides.
func Square(side int) Size {
	return Size{Width: side, Height: side}
}
