package pathing

import (
	"fmt"
	"strings"

	"tilewalk.ai/internal/sim/world/kernel/model"
)

// Strategy selects the routing algorithm.
type Strategy int

const (
	// Smart is the precise search used for player movers.
	Smart Strategy = iota
	// Dumb walks straight at the target and gives up at the first obstacle.
	Dumb
)

func (s Strategy) String() string {
	switch s {
	case Smart:
		return "SMART"
	case Dumb:
		return "DUMB"
	default:
		return "UNKNOWN"
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SMART":
		return Smart, nil
	case "DUMB":
		return Dumb, nil
	default:
		return 0, fmt.Errorf("unknown path strategy %q", s)
	}
}

// Path is the result of a routing query. Points are in traversal order and
// never include the mover's starting tile.
type Path struct {
	Points     []model.Point
	Successful bool
	// MoveNear is set when the route stops short of the target.
	MoveNear bool
}

// Last returns the final waypoint.
func (p Path) Last() (model.Point, bool) {
	if len(p.Points) == 0 {
		return model.Point{}, false
	}
	return p.Points[len(p.Points)-1], true
}

// Traveller is the routing view of a mover.
type Traveller interface {
	Location() model.Location
	Size() int
}

// Target is what a route has to reach. A tile target is reached by standing on
// Pos; an adjacent target is reached by standing next to its footprint.
type Target struct {
	Pos      model.Location
	Size     int
	Adjacent bool
}

func TileTarget(l model.Location) Target {
	return Target{Pos: l, Size: 1}
}

func NodeTarget(n model.Node, adjacent bool) Target {
	size := n.Size()
	if size < 1 {
		size = 1
	}
	return Target{Pos: n.Location(), Size: size, Adjacent: adjacent}
}

// Finder computes routes. approach asks for a route to the closest reachable
// tile when the target itself cannot be reached.
type Finder interface {
	Find(m Traveller, t Target, approach bool, s Strategy) Path
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(m Traveller, t Target, approach bool, s Strategy) Path

func (f FinderFunc) Find(m Traveller, t Target, approach bool, s Strategy) Path {
	return f(m, t, approach, s)
}

// ReachedFrom reports whether a mover of size ms anchored at p satisfies t.
func (t Target) ReachedFrom(p model.Location, ms int) bool { return reached(p, ms, t) }

func reached(p model.Location, ms int, t Target) bool {
	if p.Plane != t.Pos.Plane {
		return false
	}
	if !t.Adjacent {
		return p.X == t.Pos.X && p.Y == t.Pos.Y
	}
	if model.StandingIn(p.X, p.Y, ms, ms, t.Pos.X, t.Pos.Y, t.Size, t.Size) {
		return false
	}
	xOverlap := p.X < t.Pos.X+t.Size && t.Pos.X < p.X+ms
	yOverlap := p.Y < t.Pos.Y+t.Size && t.Pos.Y < p.Y+ms
	if xOverlap && (p.Y+ms == t.Pos.Y || t.Pos.Y+t.Size == p.Y) {
		return true
	}
	if yOverlap && (p.X+ms == t.Pos.X || t.Pos.X+t.Size == p.X) {
		return true
	}
	return false
}

// gap is the Manhattan distance between the two footprints (0 when touching or overlapping).
func gap(p model.Location, ms int, t Target) int {
	ts := t.Size
	if !t.Adjacent {
		ts = 1
	}
	dx := maxInt(0, maxInt(t.Pos.X-(p.X+ms-1), p.X-(t.Pos.X+ts-1)))
	dy := maxInt(0, maxInt(t.Pos.Y-(p.Y+ms-1), p.Y-(t.Pos.Y+ts-1)))
	return dx + dy
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
