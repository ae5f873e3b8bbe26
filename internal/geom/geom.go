// Package geom provides the integer grid geometry shared by components,
// wires and the connectivity structure.
package geom

import (
	"cmp"
	"fmt"
)

// Location is a point on the editing grid.
type Location struct {
	X int
	Y int
}

// At is shorthand for Location{X: x, Y: y}.
func At(x, y int) Location {
	return Location{X: x, Y: y}
}

// Translate returns the location moved by dx, dy.
func (l Location) Translate(dx, dy int) Location {
	return Location{X: l.X + dx, Y: l.Y + dy}
}

// Compare orders locations by Y, then X.
func (l Location) Compare(o Location) int {
	if l.Y != o.Y {
		return cmp.Compare(l.Y, o.Y)
	}
	return cmp.Compare(l.X, o.X)
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

// Bounds is an axis-aligned rectangle. The zero value is the empty bounds.
type Bounds struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty is the bounds of nothing.
var Empty = Bounds{}

// NewBounds creates a rectangle, normalizing negative extents.
func NewBounds(x, y, width, height int) Bounds {
	if width < 0 {
		x += width
		width = -width
	}
	if height < 0 {
		y += height
		height = -height
	}
	return Bounds{X: x, Y: y, Width: width, Height: height}
}

// Spanning returns the smallest bounds containing both locations.
func Spanning(a, b Location) Bounds {
	return NewBounds(a.X, a.Y, b.X-a.X, b.Y-a.Y)
}

// IsEmpty reports whether b is the empty bounds.
func (b Bounds) IsEmpty() bool {
	return b == Empty
}

// Contains reports whether the point lies inside b, edges included.
func (b Bounds) Contains(p Location) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// ContainsBounds reports whether o lies entirely inside b.
func (b Bounds) ContainsBounds(o Bounds) bool {
	return o.X >= b.X && o.Y >= b.Y &&
		o.X+o.Width <= b.X+b.Width && o.Y+o.Height <= b.Y+b.Height
}

// Add returns the union of b and o. Adding the empty bounds is a no-op.
func (b Bounds) Add(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	x0 := min(b.X, o.X)
	y0 := min(b.Y, o.Y)
	x1 := max(b.X+b.Width, o.X+o.Width)
	y1 := max(b.Y+b.Height, o.Y+o.Height)
	return Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (b Bounds) String() string {
	return fmt.Sprintf("%d,%d %dx%d", b.X, b.Y, b.Width, b.Height)
}
