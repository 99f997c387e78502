package runtime

import (
	"testing"

	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

type stubEnv struct {
	clip   *model.ClipMap
	finder pathing.Finder

	calls      []pathing.Target
	messages   []string
	flagClears int
}

func newStubEnv() *stubEnv {
	clip := model.NewClipMap()
	return &stubEnv{clip: clip, finder: pathing.NewGridFinder(clip, pathing.DefaultConfig())}
}

func (s *stubEnv) Find(m pathing.Traveller, t pathing.Target, approach bool, st pathing.Strategy) pathing.Path {
	s.calls = append(s.calls, t)
	return s.finder.Find(m, t, approach, st)
}

func (s *stubEnv) CanMove(d model.Direction, l model.Location) bool { return s.clip.CanMove(d, l) }

func (s *stubEnv) SendMessage(_ Mover, text string) { s.messages = append(s.messages, text) }

func (s *stubEnv) ClearMovementFlag(Mover) { s.flagClears++ }

var activeRegion = &model.Region{ID: "r1", Active: true}

func newMover(id string, kind model.Kind, at model.Location) *model.Entity {
	e := model.NewEntity(id, kind, at, 1)
	e.Region = activeRegion
	return e
}

// walk drains one queued step, the way the world tick does.
func walk(e *model.Entity) {
	if pt, ok := e.Walk.Next(); ok {
		e.Pos = model.Location{X: pt.X, Y: pt.Y, Plane: e.Pos.Plane}
	}
}

func runUntilDone(t *testing.T, p *Pulse, e *model.Entity, maxTicks int) int {
	t.Helper()
	for tick := 1; tick <= maxTicks; tick++ {
		if p.Update() {
			return tick
		}
		walk(e)
	}
	t.Fatalf("pulse did not finish in %d ticks (state=%s)", maxTicks, p.State())
	return 0
}

func TestPulseStraightCorridorArrives(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(3200, 3200, 0))
	p := NewPulse(env, e, model.Tile(model.Loc(3205, 3200, 0)))

	if p.Update() {
		t.Fatalf("pulse finished on first tick")
	}
	if got := e.Walk.Len(); got != 5 {
		t.Fatalf("queued steps=%d want 5", got)
	}
	if p.Near() {
		t.Fatalf("unexpected near route")
	}
	walk(e)

	ticks := runUntilDone(t, p, e, 10)
	if e.Pos != model.Loc(3205, 3200, 0) {
		t.Fatalf("pos=%v", e.Pos)
	}
	if ticks != 5 {
		t.Fatalf("finished after %d more ticks, want 5", ticks)
	}
	if p.Outcome() != OutcomeArrived || p.State() != StateStopped {
		t.Fatalf("outcome=%s state=%s", p.Outcome(), p.State())
	}
	if len(env.messages) != 0 {
		t.Fatalf("unexpected notices: %v", env.messages)
	}
	if env.flagClears != 1 {
		t.Fatalf("flag clears=%d want 1", env.flagClears)
	}
	if p.Running() {
		t.Fatalf("stopped pulse still running")
	}
}

func failingFinder() pathing.Finder {
	return pathing.FinderFunc(func(pathing.Traveller, pathing.Target, bool, pathing.Strategy) pathing.Path {
		return pathing.Path{}
	})
}

func TestPulseUnsuccessfulRouteNotifiesPlayerOnce(t *testing.T) {
	env := newStubEnv()
	env.finder = failingFinder()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	p := NewPulse(env, e, model.Tile(model.Loc(9, 9, 0)))

	runUntilDone(t, p, e, 3)
	for i := 0; i < 3; i++ {
		if !p.Update() {
			t.Fatalf("stopped pulse reported unfinished")
		}
	}
	if !p.Near() {
		t.Fatalf("expected near=true")
	}
	if len(env.messages) != 1 || env.messages[0] != CantReachMessage {
		t.Fatalf("messages=%v", env.messages)
	}
	if p.Outcome() != OutcomeUnreachable {
		t.Fatalf("outcome=%s", p.Outcome())
	}
}

func TestPulseUnsuccessfulRouteSilentForNPC(t *testing.T) {
	env := newStubEnv()
	env.finder = failingFinder()
	e := newMover("n1", model.KindNPC, model.Loc(0, 0, 0))
	p := NewPulse(env, e, model.Tile(model.Loc(9, 9, 0)))

	runUntilDone(t, p, e, 3)
	if len(env.messages) != 0 || env.flagClears != 0 {
		t.Fatalf("npc got notices=%v clears=%d", env.messages, env.flagClears)
	}
	if p.Strategy() != pathing.Dumb {
		t.Fatalf("npc strategy=%s", p.Strategy())
	}
}

func TestPulseCacheHitLeavesQueueAlone(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	p := NewPulse(env, e, model.Tile(model.Loc(6, 0, 0)))

	p.Update()
	if p.RouteVersion() != 1 || len(env.calls) != 1 {
		t.Fatalf("version=%d calls=%d", p.RouteVersion(), len(env.calls))
	}
	walk(e)
	before := e.Walk.Steps()
	p.FindPath()
	p.Update()
	after := e.Walk.Steps()
	if p.RouteVersion() != 1 || len(env.calls) != 1 {
		t.Fatalf("route re-derived on cache hit: version=%d calls=%d", p.RouteVersion(), len(env.calls))
	}
	if len(before) != len(after) {
		t.Fatalf("queue changed: before=%v after=%v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("queue changed: before=%v after=%v", before, after)
		}
	}
}

func TestPulseRederivesWhenDestinationMoves(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	target := newMover("n1", model.KindNPC, model.Loc(8, 0, 0))
	p := NewPulse(env, e, target, WithKind(tasks.KindFollow))

	p.Update()
	if e.Facing != target {
		t.Fatalf("mover should face the entity destination")
	}
	walk(e)
	target.Pos = model.Loc(8, 3, 0)
	p.Update()
	if p.RouteVersion() != 2 {
		t.Fatalf("version=%d want 2", p.RouteVersion())
	}
	last, ok := p.Last()
	if !ok || last != target.Pos {
		t.Fatalf("last=%v ok=%v", last, ok)
	}
	ticks := runUntilDone(t, p, e, 30)
	if ticks == 0 || p.Outcome() != OutcomeArrived {
		t.Fatalf("outcome=%s", p.Outcome())
	}
	// Entity destinations are approached, not stood on.
	if model.StandingIn(e.Pos.X, e.Pos.Y, 1, 1, target.Pos.X, target.Pos.Y, 1, 1) {
		t.Fatalf("mover ended on top of target at %v", e.Pos)
	}
	if e.Facing != nil {
		t.Fatalf("facing should be cleared on stop")
	}
}

func TestPulseStoppedNeverMutatesMover(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	target := newMover("n1", model.KindNPC, model.Loc(5, 5, 0))
	p := NewPulse(env, e, target)
	p.Update()
	p.Stop()

	e.Face(target)
	e.Walk.Reset(false)
	e.Walk.AddPath(1, 0)
	for i := 0; i < 3; i++ {
		if !p.Update() {
			t.Fatalf("stopped pulse must report finished")
		}
	}
	if e.Facing != target {
		t.Fatalf("facing mutated after stop")
	}
	if steps := e.Walk.Steps(); len(steps) != 1 || steps[0] != (model.Point{X: 1, Y: 0}) {
		t.Fatalf("queue mutated after stop: %v", steps)
	}
	if len(env.calls) != 1 {
		t.Fatalf("finder called after stop: %d", len(env.calls))
	}
	if _, ok := p.Last(); ok {
		t.Fatalf("stop should clear the cached destination")
	}
}

func TestPulseCancelObservedOnNextUpdate(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	target := newMover("n1", model.KindNPC, model.Loc(5, 0, 0))
	p := NewPulse(env, e, target)
	p.Update()
	if e.Facing == nil {
		t.Fatalf("expected facing set")
	}

	p.Cancel()
	if p.State() == StateStopped {
		t.Fatalf("cancel must not stop synchronously")
	}
	if !p.Update() {
		t.Fatalf("cancelled pulse should finish")
	}
	if p.Outcome() != OutcomeCancelled || e.Facing != nil {
		t.Fatalf("outcome=%s facing=%v", p.Outcome(), e.Facing)
	}
	if len(env.messages) != 0 {
		t.Fatalf("cancel should be silent")
	}
}

func TestPulseInvalidRegionStopsSilently(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	e.Region = &model.Region{ID: "dark", Active: false}
	p := NewPulse(env, e, model.Tile(model.Loc(3, 0, 0)))
	if !p.Update() {
		t.Fatalf("expected finish")
	}
	if p.Outcome() != OutcomeInvalid || len(env.calls) != 0 || len(env.messages) != 0 {
		t.Fatalf("outcome=%s calls=%d messages=%v", p.Outcome(), len(env.calls), env.messages)
	}

	removed := &model.Object{ID: "gone", Pos: model.Loc(2, 2, 0), Removed: true}
	e.Region = activeRegion
	p = NewPulse(env, e, removed)
	if !p.Update() || p.Outcome() != OutcomeInvalid {
		t.Fatalf("inactive destination should stop the pulse")
	}

	p = NewPulse(env, e, nil)
	if !p.Update() || p.Outcome() != OutcomeInvalid {
		t.Fatalf("missing destination should stop the pulse")
	}
}

func TestPulseResolverPrecedence(t *testing.T) {
	flag := FixedLocation(model.Loc(1, 1, 0))
	option := FixedLocation(model.Loc(2, 2, 0))
	use := FixedLocation(model.Loc(3, 3, 0))
	decline := ResolverFunc(func(Mover, model.Node) (model.Location, bool) { return model.Location{}, false })
	dest := &model.Object{ID: "booth", Pos: model.Loc(8, 8, 0), Footprint: 1}

	cases := []struct {
		name string
		kind model.Kind
		opts []Option
		want pathing.Target
	}{
		{"flag wins", model.KindPlayer, []Option{WithDestinationFlag(flag), WithOptionHandler(option), WithUseHandler(use)}, pathing.TileTarget(model.Loc(1, 1, 0))},
		{"option after declined flag", model.KindPlayer, []Option{WithDestinationFlag(decline), WithOptionHandler(option), WithUseHandler(use)}, pathing.TileTarget(model.Loc(2, 2, 0))},
		{"use handler for players", model.KindPlayer, []Option{WithUseHandler(use)}, pathing.TileTarget(model.Loc(3, 3, 0))},
		{"use handler ignored for npcs", model.KindNPC, []Option{WithUseHandler(use)}, pathing.NodeTarget(dest, true)},
		{"raw destination", model.KindPlayer, nil, pathing.NodeTarget(dest, true)},
	}
	for _, tc := range cases {
		env := newStubEnv()
		e := newMover("m", tc.kind, model.Loc(0, 0, 0))
		NewPulse(env, e, dest, tc.opts...).Update()
		if len(env.calls) != 1 || env.calls[0] != tc.want {
			t.Fatalf("%s: calls=%+v want %+v", tc.name, env.calls, tc.want)
		}
	}
}

func TestPulseFootprintFallbackBeforeRawDestination(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(11, 11, 0))
	dest := model.NewEntity("ogre", model.KindNPC, model.Loc(10, 10, 0), 3)
	dest.Region = activeRegion
	p := NewPulse(env, e, dest)

	p.Update()
	if len(env.calls) == 0 {
		t.Fatalf("finder not called")
	}
	if want := pathing.TileTarget(model.Loc(11, 13, 0)); env.calls[0] != want {
		t.Fatalf("first target=%+v want %+v", env.calls[0], want)
	}
	runUntilDone(t, p, e, 10)
	if e.Pos != model.Loc(11, 13, 0) || p.Outcome() != OutcomeArrived {
		t.Fatalf("pos=%v outcome=%s", e.Pos, p.Outcome())
	}
}

func TestPulseFootprintFallbackSkippedWhileDestinationMoves(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(11, 11, 0))
	dest := model.NewEntity("ogre", model.KindNPC, model.Loc(10, 10, 0), 3)
	dest.Region = activeRegion
	dest.Walk.AddPath(10, 11)
	p := NewPulse(env, e, dest)

	p.Update()
	if len(env.calls) != 1 || env.calls[0] != pathing.NodeTarget(dest, true) {
		t.Fatalf("calls=%+v", env.calls)
	}
}

func TestPulseAllSidesBlockedFallsBackToRawDestination(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(11, 11, 0))
	dest := model.NewEntity("ogre", model.KindNPC, model.Loc(10, 10, 0), 3)
	dest.Region = activeRegion
	blockRing(env.clip, dest.Pos, 3)
	p := NewPulse(env, e, dest)

	if !p.Update() {
		t.Fatalf("boxed-in mover should give up")
	}
	if len(env.calls) != 1 || env.calls[0] != pathing.NodeTarget(dest, true) {
		t.Fatalf("calls=%+v", env.calls)
	}
	if p.Outcome() != OutcomeUnreachable || len(env.messages) != 1 {
		t.Fatalf("outcome=%s messages=%v", p.Outcome(), env.messages)
	}
}

func TestPulseArrivalPredicateGatesCompletion(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	ready := false
	p := NewPulse(env, e, model.Tile(model.Loc(1, 0, 0)), WithArrival(func() bool { return ready }))

	p.Update()
	walk(e)
	if p.Update() {
		t.Fatalf("pulse finished before predicate")
	}
	if p.State() != StateArrived {
		t.Fatalf("state=%s want ARRIVED", p.State())
	}
	ready = true
	if !p.Update() || p.Outcome() != OutcomeArrived {
		t.Fatalf("pulse should finish once predicate holds")
	}
}

func TestPulseNeverWalksSkipsRouting(t *testing.T) {
	env := newStubEnv()
	e := newMover("n1", model.KindNPC, model.Loc(4, 4, 0))
	e.NoWalk = true
	p := NewPulse(env, e, model.Tile(model.Loc(9, 9, 0)))
	if !p.Update() {
		t.Fatalf("never-walking mover should finish in place")
	}
	if len(env.calls) != 0 || e.Walk.IsMoving() {
		t.Fatalf("never-walking mover routed: calls=%d", len(env.calls))
	}
	if p.Outcome() != OutcomeUnreachable || e.Pos != model.Loc(4, 4, 0) {
		t.Fatalf("far target: outcome=%s pos=%v", p.Outcome(), e.Pos)
	}
	if len(env.messages) != 0 {
		t.Fatalf("npc got notices: %v", env.messages)
	}

	// A destination already in reach counts as arrived.
	next := newMover("n2", model.KindNPC, model.Loc(5, 4, 0))
	p = NewPulse(env, e, next, WithKind(tasks.KindFollow))
	if !p.Update() || p.Outcome() != OutcomeArrived {
		t.Fatalf("adjacent target: outcome=%s", p.Outcome())
	}
	if len(env.calls) != 0 {
		t.Fatalf("never-walking mover routed: calls=%d", len(env.calls))
	}
}

func TestPulseTypedNilNodesStopAsInvalid(t *testing.T) {
	env := newStubEnv()
	var ghost *model.Entity
	p := NewPulse(env, ghost, model.Tile(model.Loc(1, 1, 0)))
	if !p.Update() || p.Outcome() != OutcomeInvalid {
		t.Fatalf("typed nil mover: outcome=%s", p.Outcome())
	}

	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	var gone *model.Object
	p = NewPulse(env, e, gone)
	if !p.Update() || p.Outcome() != OutcomeInvalid {
		t.Fatalf("typed nil destination: outcome=%s", p.Outcome())
	}
	if len(env.calls) != 0 || len(env.messages) != 0 {
		t.Fatalf("calls=%d messages=%v", len(env.calls), env.messages)
	}
}

func TestPulseLocationHookFiresOnChange(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	var seen []model.Location
	p := NewPulse(env, e, model.Tile(model.Loc(2, 0, 0)), WithLocationHook(func(_ Mover, l model.Location) {
		seen = append(seen, l)
	}))

	p.Update()
	p.Update()
	walk(e)
	p.Update()
	want := []model.Location{model.Loc(0, 0, 0), model.Loc(1, 0, 0)}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("seen=%v want %v", seen, want)
	}
}

func TestPulseForceRunAndSchedulerContract(t *testing.T) {
	env := newStubEnv()
	e := newMover("p1", model.KindPlayer, model.Loc(0, 0, 0))
	p := NewPulse(env, e, model.Tile(model.Loc(3, 0, 0)), WithForceRun(true))
	var task tasks.Task = p
	task.Update()
	if !e.Walk.Running() || !p.ForceRun() {
		t.Fatalf("expected running queue")
	}
	p.SetForceRun(false)
	p.SetDestination(model.Tile(model.Loc(0, 3, 0)))
	task.Update()
	if e.Walk.Running() {
		t.Fatalf("expected walking queue after reset without force-run")
	}
	if p.RouteVersion() != 2 {
		t.Fatalf("version=%d", p.RouteVersion())
	}
}
