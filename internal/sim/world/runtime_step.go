package world

import "tilewalk.ai/internal/sim/world/kernel/model"

// Step advances the world by exactly one tick and returns its record.
func (w *World) Step() TickLogEntry {
	return w.stepInternal(nil)
}

func (w *World) stepInternal(requests []MoveRequest) TickLogEntry {
	nowTick := w.tick.Load()
	w.tickEvents = nil

	// Requests apply at the tick boundary: scheduled first, then inbox order.
	if due := w.scheduled[nowTick]; len(due) > 0 {
		delete(w.scheduled, nowTick)
		for _, req := range due {
			w.applyRequest(req)
		}
	}
	for _, req := range requests {
		w.applyRequest(req)
	}

	w.finishTasks(w.sched.Tick())
	w.drainQueues()

	entry := TickLogEntry{
		Tick:   nowTick,
		Movers: w.moverStates(),
		Events: w.tickEvents,
	}
	for _, s := range w.sinks {
		if err := s.WriteTick(entry); err != nil {
			w.logf("tick sink: %v", err)
		}
	}
	w.tick.Add(1)
	return entry
}

func (w *World) drainQueues() {
	for _, id := range w.EntityIDs() {
		e := w.entities[id]
		q := e.Walk
		if q == nil || !q.IsMoving() {
			continue
		}
		steps := w.tune.WalkStepsPerTick
		if q.Running() {
			steps = w.tune.RunStepsPerTick
		}
		for i := 0; i < steps; i++ {
			p, ok := q.Next()
			if !ok {
				break
			}
			e.Pos = model.Location{X: p.X, Y: p.Y, Plane: e.Pos.Plane}
		}
	}
}

func (w *World) moverStates() []MoverState {
	ids := w.EntityIDs()
	out := make([]MoverState, 0, len(ids))
	for _, id := range ids {
		e := w.entities[id]
		st := MoverState{
			ID:     id,
			Pos:    e.Pos.ToArray(),
			Facing: e.FacingID(),
		}
		if e.Walk != nil {
			st.Moving = e.Walk.IsMoving()
			st.Running = e.Walk.Running()
		}
		if m := w.moving[id]; m != nil {
			st.TaskID = m.id
			st.State = m.pulse.State().String()
		}
		out = append(out, st)
	}
	return out
}
