package runtime

import "tilewalk.ai/internal/sim/world/kernel/model"

// Resolver turns a destination node into the tile a mover should walk to.
// ok=false defers to the next resolver in the chain.
type Resolver interface {
	Resolve(m Mover, dest model.Node) (loc model.Location, ok bool)
}

type ResolverFunc func(m Mover, dest model.Node) (model.Location, bool)

func (f ResolverFunc) Resolve(m Mover, dest model.Node) (model.Location, bool) { return f(m, dest) }

// FixedLocation always resolves to loc.
func FixedLocation(loc model.Location) Resolver {
	return ResolverFunc(func(Mover, model.Node) (model.Location, bool) {
		return loc, true
	})
}

// SideOf resolves to the tile just outside the middle of the destination's side d.
func SideOf(d model.Direction) Resolver {
	return ResolverFunc(func(_ Mover, dest model.Node) (model.Location, bool) {
		if dest == nil {
			return model.Location{}, false
		}
		l := dest.Location()
		size := dest.Size()
		mid := size >> 1
		switch d {
		case model.North:
			return l.Transform(mid, size, 0), true
		case model.East:
			return l.Transform(size, mid, 0), true
		case model.South:
			return l.Transform(mid, -1, 0), true
		case model.West:
			return l.Transform(-1, mid, 0), true
		default:
			return model.Location{}, false
		}
	})
}

// resolveDestination walks the resolver chain in precedence order. The item-use
// resolver only applies to players; the footprint fallback only when inside.
func (p *Pulse) resolveDestination(inside bool) (model.Location, bool) {
	if p.flag != nil {
		if loc, ok := p.flag.Resolve(p.mover, p.dest); ok {
			return loc, true
		}
	}
	if p.option != nil {
		if loc, ok := p.option.Resolve(p.mover, p.dest); ok {
			return loc, true
		}
	}
	if p.use != nil && p.mover.IsPlayer() {
		if loc, ok := p.use.Resolve(p.mover, p.dest); ok {
			return loc, true
		}
	}
	if inside {
		return FindBorderLocation(p.env, p.mover, p.dest)
	}
	return model.Location{}, false
}

// insideDestination reports whether the mover overlaps the footprint of a
// stationary destination. Plain tiles never count.
func (p *Pulse) insideDestination() bool {
	if _, ok := p.dest.(model.Tile); ok {
		return false
	}
	if mv, ok := p.dest.(mobile); ok {
		if q := mv.WalkingQueue(); q != nil && q.IsMoving() {
			return false
		}
	}
	l := p.mover.Location()
	dl := p.dest.Location()
	if l.Plane != dl.Plane {
		return false
	}
	ms := p.mover.Size()
	ds := p.dest.Size()
	return model.StandingIn(l.X, l.Y, ms, ms, dl.X, dl.Y, ds, ds)
}
