package model

import "fmt"

// Location is a tile coordinate. Plane selects the map level.
type Location struct {
	X     int
	Y     int
	Plane int
}

func Loc(x, y, plane int) Location { return Location{X: x, Y: y, Plane: plane} }

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d,%d)", l.X, l.Y, l.Plane)
}

func (l Location) ToArray() [3]int { return [3]int{l.X, l.Y, l.Plane} }

// Transform returns l offset by the given deltas.
func (l Location) Transform(dx, dy, dplane int) Location {
	return Location{X: l.X + dx, Y: l.Y + dy, Plane: l.Plane + dplane}
}

// TransformDir returns l moved amount tiles along d.
func (l Location) TransformDir(d Direction, amount int) Location {
	sx, sy := d.Step()
	return Location{X: l.X + sx*amount, Y: l.Y + sy*amount, Plane: l.Plane}
}

// Delta returns other - from on every axis.
func Delta(from, other Location) Location {
	return Location{X: other.X - from.X, Y: other.Y - from.Y, Plane: other.Plane - from.Plane}
}

// IsInside reports whether l lies in the rectangle spanned by the two corners.
// The corners may be given in any order; the plane is ignored.
func (l Location) IsInside(a, b Location) bool {
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return l.X >= minX && l.X <= maxX && l.Y >= minY && l.Y <= maxY
}

// WithPlane returns l on the given plane.
func (l Location) WithPlane(plane int) Location {
	l.Plane = plane
	return l
}

// StandingIn reports whether the rectangle (x, y, w, h) overlaps the rectangle (ox, oy, ow, oh).
func StandingIn(x, y, w, h, ox, oy, ow, oh int) bool {
	if x >= ox+ow || ox >= x+w {
		return false
	}
	if y >= oy+oh || oy >= y+h {
		return false
	}
	return true
}

// Node is anything that occupies a square footprint in the world.
type Node interface {
	Location() Location
	Size() int
	Active() bool
}

// Object is a stationary node such as scenery or a multi-tile obstacle.
type Object struct {
	ID        string
	Pos       Location
	Footprint int
	Removed   bool
}

func (o *Object) Location() Location { return o.Pos }

func (o *Object) Size() int {
	if o.Footprint < 1 {
		return 1
	}
	return o.Footprint
}

func (o *Object) Active() bool { return !o.Removed }

// Tile wraps a bare location as a 1x1 node.
type Tile Location

func (t Tile) Location() Location { return Location(t) }
func (t Tile) Size() int          { return 1 }
func (t Tile) Active() bool       { return true }
