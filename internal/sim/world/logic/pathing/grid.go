package pathing

import "tilewalk.ai/internal/sim/world/kernel/model"

// Clipping is the collision view the grid finder needs.
type Clipping interface {
	CanStep(from model.Location, d model.Direction) bool
	// CanStepThrough ignores solid tiles; used while the mover stands on one.
	CanStepThrough(from model.Location, d model.Direction) bool
	Solid(l model.Location) bool
}

type Config struct {
	// MaxRadius bounds the smart search around the start tile (Chebyshev).
	MaxRadius int
	// MaxDumbSteps bounds the straight-line walk.
	MaxDumbSteps int
}

func DefaultConfig() Config {
	return Config{MaxRadius: 64, MaxDumbSteps: 64}
}

// GridFinder is the reference Finder over a clip map.
type GridFinder struct {
	clip Clipping
	cfg  Config
}

func NewGridFinder(clip Clipping, cfg Config) *GridFinder {
	def := DefaultConfig()
	if cfg.MaxRadius <= 0 {
		cfg.MaxRadius = def.MaxRadius
	}
	if cfg.MaxDumbSteps <= 0 {
		cfg.MaxDumbSteps = def.MaxDumbSteps
	}
	return &GridFinder{clip: clip, cfg: cfg}
}

// Find never routes across planes: a target on another plane is unreachable.
func (g *GridFinder) Find(m Traveller, t Target, approach bool, s Strategy) Path {
	if m.Location().Plane != t.Pos.Plane {
		return Path{}
	}
	if s == Dumb {
		return g.dumb(m, t, approach)
	}
	return g.smart(m, t, approach)
}

// canStep checks every tile on the leading edge of a size x size footprint.
// A footprint overlapping solid tiles may move through solid tiles until it is clear.
func (g *GridFinder) canStep(p model.Location, size int, d model.Direction) bool {
	through := g.embedded(p, size)
	for i := 0; i < size; i++ {
		var edge model.Location
		switch d {
		case model.North:
			edge = p.Transform(i, size-1, 0)
		case model.East:
			edge = p.Transform(size-1, i, 0)
		case model.South:
			edge = p.Transform(i, 0, 0)
		case model.West:
			edge = p.Transform(0, i, 0)
		}
		if through {
			if !g.clip.CanStepThrough(edge, d) {
				return false
			}
			continue
		}
		if !g.clip.CanStep(edge, d) {
			return false
		}
	}
	return true
}

func (g *GridFinder) embedded(p model.Location, size int) bool {
	for dx := 0; dx < size; dx++ {
		for dy := 0; dy < size; dy++ {
			if g.clip.Solid(p.Transform(dx, dy, 0)) {
				return true
			}
		}
	}
	return false
}

// Fixed neighbour order for determinism.
var searchOrder = [4]model.Direction{model.East, model.West, model.North, model.South}

type visit struct {
	prev  model.Location
	depth int
}

func (g *GridFinder) smart(m Traveller, t Target, approach bool) Path {
	start := m.Location()
	size := m.Size()
	if size < 1 {
		size = 1
	}
	if reached(start, size, t) {
		return Path{Successful: true}
	}

	visited := make(map[model.Location]visit, 256)
	visited[start] = visit{prev: start}
	queue := make([]model.Location, 0, 256)
	queue = append(queue, start)

	best := start
	bestGap := gap(start, size, t)
	bestDepth := 0

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		depth := visited[cur].depth
		for _, d := range searchOrder {
			if !g.canStep(cur, size, d) {
				continue
			}
			next := cur.TransformDir(d, 1)
			if _, seen := visited[next]; seen {
				continue
			}
			if absInt(next.X-start.X) > g.cfg.MaxRadius || absInt(next.Y-start.Y) > g.cfg.MaxRadius {
				continue
			}
			visited[next] = visit{prev: cur, depth: depth + 1}
			if reached(next, size, t) {
				return Path{Points: backtrack(visited, start, next), Successful: true}
			}
			if gp := gap(next, size, t); gp < bestGap || (gp == bestGap && depth+1 < bestDepth) {
				best, bestGap, bestDepth = next, gp, depth+1
			}
			queue = append(queue, next)
		}
	}

	if !approach {
		return Path{}
	}
	return Path{Points: backtrack(visited, start, best), Successful: true, MoveNear: true}
}

func backtrack(visited map[model.Location]visit, start, end model.Location) []model.Point {
	var rev []model.Point
	for cur := end; cur != start; cur = visited[cur].prev {
		rev = append(rev, model.Point{X: cur.X, Y: cur.Y})
	}
	out := make([]model.Point, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

func (g *GridFinder) dumb(m Traveller, t Target, approach bool) Path {
	cur := m.Location()
	size := m.Size()
	if size < 1 {
		size = 1
	}
	var points []model.Point
	for i := 0; i < g.cfg.MaxDumbSteps; i++ {
		if reached(cur, size, t) {
			return Path{Points: points, Successful: true}
		}
		dx := t.Pos.X - cur.X
		dy := t.Pos.Y - cur.Y
		primaryX := PrimaryAxis(dx, dy)
		d, ok := StepDirection(dx, dy, primaryX)
		if !ok || !g.canStep(cur, size, d) {
			d, ok = StepDirection(dx, dy, !primaryX)
			if !ok || !g.canStep(cur, size, d) {
				break
			}
		}
		cur = cur.TransformDir(d, 1)
		points = append(points, model.Point{X: cur.X, Y: cur.Y})
	}
	if reached(cur, size, t) {
		return Path{Points: points, Successful: true}
	}
	if !approach {
		return Path{MoveNear: true}
	}
	return Path{Points: points, Successful: true, MoveNear: true}
}

// PrimaryAxis reports whether x is the dominant axis of the delta.
func PrimaryAxis(dx, dy int) bool {
	return absInt(dx) >= absInt(dy)
}

// StepDirection returns the direction reducing the delta along the chosen axis.
func StepDirection(dx, dy int, alongX bool) (model.Direction, bool) {
	if alongX {
		switch {
		case dx > 0:
			return model.East, true
		case dx < 0:
			return model.West, true
		}
		return 0, false
	}
	switch {
	case dy > 0:
		return model.North, true
	case dy < 0:
		return model.South, true
	}
	return 0, false
}
