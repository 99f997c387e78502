package runtime

import (
	"reflect"

	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

type State int

const (
	StateActive State = iota
	StateNearFail
	StateArrived
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateNearFail:
		return "NEAR_FAIL"
	case StateArrived:
		return "ARRIVED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Outcome records why a pulse stopped.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeArrived     Outcome = "ARRIVED"
	OutcomeUnreachable Outcome = "UNREACHABLE"
	OutcomeCancelled   Outcome = "CANCELLED"
	OutcomeInvalid     Outcome = "INVALID"
)

// LocationHook observes the mover's tile once per tick whenever it changed.
type LocationHook func(m Mover, loc model.Location)

// routeCache keys the current route on the destination tile it was derived for.
type routeCache struct {
	key     model.Location
	valid   bool
	version uint64
}

func (c *routeCache) hit(l model.Location) bool { return c.valid && c.key == l }

func (c *routeCache) store(l model.Location) {
	c.key = l
	c.valid = true
	c.version++
}

func (c *routeCache) invalidate() { c.valid = false }

// Pulse drives one mover towards one destination, one update per tick.
type Pulse struct {
	tasks.Pulse

	env   Env
	mover Mover
	dest  model.Node

	kind     tasks.Kind
	strategy pathing.Strategy
	forceRun bool

	flag   Resolver
	option Resolver
	use    Resolver

	arrive func() bool
	hooks  []LocationHook

	cache       routeCache
	interact    model.Location
	hasInteract bool
	near        bool

	seen     model.Location
	seenOnce bool

	state     State
	outcome   Outcome
	cancelled bool
}

type Option func(*Pulse)

func WithKind(k tasks.Kind) Option { return func(p *Pulse) { p.kind = k } }

func WithStrategy(s pathing.Strategy) Option { return func(p *Pulse) { p.strategy = s } }

func WithForceRun(run bool) Option { return func(p *Pulse) { p.forceRun = run } }

// WithDestinationFlag installs the explicit destination override.
func WithDestinationFlag(r Resolver) Option { return func(p *Pulse) { p.flag = r } }

// WithOptionHandler installs the resolver of the interaction option that triggered movement.
func WithOptionHandler(r Resolver) Option { return func(p *Pulse) { p.option = r } }

// WithUseHandler installs the resolver of an item-use interaction. Players only.
func WithUseHandler(r Resolver) Option { return func(p *Pulse) { p.use = r } }

// WithArrival sets the completion check run once the mover stands on the
// interact location. Without one, arriving completes the pulse.
func WithArrival(fn func() bool) Option { return func(p *Pulse) { p.arrive = fn } }

func WithLocationHook(fn LocationHook) Option {
	return func(p *Pulse) {
		if fn != nil {
			p.hooks = append(p.hooks, fn)
		}
	}
}

func NewPulse(env Env, mover Mover, dest model.Node, opts ...Option) *Pulse {
	if isNil(mover) {
		mover = nil
	}
	if isNil(dest) {
		dest = nil
	}
	p := &Pulse{
		env:      env,
		mover:    mover,
		dest:     dest,
		kind:     tasks.KindWalk,
		strategy: pathing.Dumb,
	}
	if mover != nil && mover.IsPlayer() {
		p.strategy = pathing.Smart
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update advances the pulse by one tick and reports whether it is finished.
func (p *Pulse) Update() bool {
	if p.state == StateStopped {
		return true
	}
	if p.mover == nil || p.dest == nil {
		p.finish(OutcomeInvalid)
		return true
	}
	p.mover.Face(nil)
	if !p.mover.Active() || !p.dest.Active() || !p.mover.RegionActive() {
		p.finish(OutcomeInvalid)
		return true
	}
	if p.cancelled {
		p.finish(OutcomeCancelled)
		return true
	}
	p.observeLocation()
	p.FindPath()
	if !p.hasInteract || p.mover.Location() != p.interact {
		return false
	}
	if !p.near {
		p.state = StateArrived
	}
	if p.near || p.arrived() {
		if p.mover.IsPlayer() {
			if p.near {
				p.env.SendMessage(p.mover, CantReachMessage)
			}
			p.env.ClearMovementFlag(p.mover)
		}
		if p.near {
			p.finish(OutcomeUnreachable)
		} else {
			p.finish(OutcomeArrived)
		}
		return true
	}
	return false
}

func (p *Pulse) arrived() bool {
	if p.arrive == nil {
		return true
	}
	return p.arrive()
}

func (p *Pulse) observeLocation() {
	loc := p.mover.Location()
	if p.seenOnce && loc == p.seen {
		return
	}
	p.seen = loc
	p.seenOnce = true
	for _, h := range p.hooks {
		h(p.mover, loc)
	}
}

func (p *Pulse) finish(o Outcome) {
	p.outcome = o
	p.Stop()
}

// Stop terminates the pulse immediately. A stopped pulse never touches its mover again.
func (p *Pulse) Stop() {
	if p.state == StateStopped {
		return
	}
	p.Pulse.Stop()
	if p.outcome == OutcomeNone {
		p.outcome = OutcomeCancelled
	}
	if p.mover != nil && isMobile(p.dest) {
		p.mover.Face(nil)
	}
	p.cache.invalidate()
	p.state = StateStopped
}

// Cancel asks the pulse to stop; it cleans up on its next update.
func (p *Pulse) Cancel() { p.cancelled = true }

func (p *Pulse) Cancelled() bool { return p.cancelled }

// FindPath re-derives the route when the destination moved or the mover is
// standing inside it, and loads it into the mover's walking queue.
func (p *Pulse) FindPath() {
	if p.mover == nil || p.dest == nil {
		return
	}
	if p.mover.NeverWalks() {
		// Never-walking movers stay put; they only arrive if already in reach.
		here := p.mover.Location()
		target := p.rawTarget()
		if loc, ok := p.resolveDestination(false); ok {
			target = pathing.TileTarget(loc)
		}
		p.interact = here
		p.hasInteract = true
		p.near = !target.ReachedFrom(here, p.mover.Size())
		if p.near {
			p.state = StateNearFail
		}
		return
	}
	inside := p.insideDestination()
	destLoc := p.dest.Location()
	if p.cache.hit(destLoc) && !inside {
		return
	}

	target := p.rawTarget()
	if loc, ok := p.resolveDestination(inside); ok {
		target = pathing.TileTarget(loc)
	}
	path := p.env.Find(p.mover, target, true, p.strategy)
	p.near = !path.Successful || path.MoveNear

	here := p.mover.Location()
	p.interact = here
	p.hasInteract = true
	if last, ok := path.Last(); ok {
		p.interact = model.Location{X: last.X, Y: last.Y, Plane: here.Plane}
		if q := p.mover.WalkingQueue(); q != nil {
			q.Reset(p.forceRun)
			for _, pt := range path.Points {
				q.AddPath(pt.X, pt.Y)
			}
		}
		if isMobile(p.dest) {
			p.mover.Face(p.dest)
		} else {
			p.mover.Face(nil)
		}
	}
	if p.near {
		p.state = StateNearFail
	} else {
		p.state = StateActive
	}
	p.cache.store(destLoc)
}

// rawTarget is the destination itself: plain tiles are stood on, anything else is approached.
func (p *Pulse) rawTarget() pathing.Target {
	if t, ok := p.dest.(model.Tile); ok {
		return pathing.TileTarget(t.Location())
	}
	return pathing.NodeTarget(p.dest, true)
}

func (p *Pulse) Mover() Mover { return p.mover }

func (p *Pulse) Destination() model.Node { return p.dest }

// SetDestination retargets the pulse; the next update re-derives the route.
func (p *Pulse) SetDestination(n model.Node) {
	p.dest = n
	p.cache.invalidate()
}

func (p *Pulse) ForceRun() bool { return p.forceRun }

func (p *Pulse) SetForceRun(run bool) { p.forceRun = run }

// Last returns the destination tile the current route was derived for.
func (p *Pulse) Last() (model.Location, bool) { return p.cache.key, p.cache.valid }

// SetLast overrides the cached destination tile.
func (p *Pulse) SetLast(l model.Location) {
	p.cache.key = l
	p.cache.valid = true
}

// ClearLast forces a route re-derivation on the next update.
func (p *Pulse) ClearLast() { p.cache.invalidate() }

// RouteVersion counts route derivations.
func (p *Pulse) RouteVersion() uint64 { return p.cache.version }

func (p *Pulse) Interact() (model.Location, bool) { return p.interact, p.hasInteract }

func (p *Pulse) Near() bool { return p.near }

func (p *Pulse) State() State { return p.state }

func (p *Pulse) Outcome() Outcome { return p.outcome }

func (p *Pulse) Kind() tasks.Kind { return p.kind }

func (p *Pulse) Strategy() pathing.Strategy { return p.strategy }

// isNil also catches typed nil pointers stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
