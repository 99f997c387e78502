package model

// Clipping flags stored per tile.
const (
	FlagBlocked uint8 = 1 << iota
	FlagWallNorth
	FlagWallEast
	FlagWallSouth
	FlagWallWest
)

func wallFlag(d Direction) uint8 {
	switch d {
	case North:
		return FlagWallNorth
	case East:
		return FlagWallEast
	case South:
		return FlagWallSouth
	case West:
		return FlagWallWest
	default:
		return 0
	}
}

// Bounds is an inclusive rectangle applied to every plane.
type Bounds struct {
	MinX, MinY int
	MaxX, MaxY int
}

func (b Bounds) Contains(l Location) bool {
	return l.X >= b.MinX && l.X <= b.MaxX && l.Y >= b.MinY && l.Y <= b.MaxY
}

// ClipMap holds the collision flags of the world. Tiles with no entry are open.
// With bounds set, anything outside them is blocked.
type ClipMap struct {
	flags  map[Location]uint8
	bounds *Bounds
}

func NewClipMap() *ClipMap {
	return &ClipMap{flags: map[Location]uint8{}}
}

func (c *ClipMap) SetBounds(b Bounds) { c.bounds = &b }

func (c *ClipMap) Flags(l Location) uint8 { return c.flags[l] }

func (c *ClipMap) Block(l Location) { c.flags[l] |= FlagBlocked }

func (c *ClipMap) Unblock(l Location) {
	c.flags[l] &^= FlagBlocked
	if c.flags[l] == 0 {
		delete(c.flags, l)
	}
}

// BlockArea blocks every tile of the size x size square anchored at l.
func (c *ClipMap) BlockArea(l Location, size int) {
	for dx := 0; dx < size; dx++ {
		for dy := 0; dy < size; dy++ {
			c.Block(l.Transform(dx, dy, 0))
		}
	}
}

func (c *ClipMap) UnblockArea(l Location, size int) {
	for dx := 0; dx < size; dx++ {
		for dy := 0; dy < size; dy++ {
			c.Unblock(l.Transform(dx, dy, 0))
		}
	}
}

// AddWall puts a wall on side d of tile l and the matching side of its neighbour.
func (c *ClipMap) AddWall(l Location, d Direction) {
	c.flags[l] |= wallFlag(d)
	n := l.TransformDir(d, 1)
	c.flags[n] |= wallFlag(d.Opposite())
}

func (c *ClipMap) Blocked(l Location) bool {
	if c.bounds != nil && !c.bounds.Contains(l) {
		return true
	}
	return c.flags[l]&FlagBlocked != 0
}

// CanMove reports whether a mover travelling in direction d may enter l.
func (c *ClipMap) CanMove(d Direction, l Location) bool {
	if c.Blocked(l) {
		return false
	}
	return c.flags[l]&wallFlag(d.Opposite()) == 0
}

// CanStep reports whether a single tile step from `from` towards d is legal.
func (c *ClipMap) CanStep(from Location, d Direction) bool {
	if c.flags[from]&wallFlag(d) != 0 {
		return false
	}
	return c.CanMove(d, from.TransformDir(d, 1))
}

// Solid reports whether l carries the blocked flag. Unlike Blocked it ignores bounds.
func (c *ClipMap) Solid(l Location) bool { return c.flags[l]&FlagBlocked != 0 }

// CanStepThrough is CanStep with solid tiles treated as open. Walls and bounds still apply.
func (c *ClipMap) CanStepThrough(from Location, d Direction) bool {
	if c.flags[from]&wallFlag(d) != 0 {
		return false
	}
	n := from.TransformDir(d, 1)
	if c.bounds != nil && !c.bounds.Contains(n) {
		return false
	}
	return c.flags[n]&wallFlag(d.Opposite()) == 0
}
