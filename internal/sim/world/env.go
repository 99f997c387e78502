package world

import (
	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

// moveEnv is the world as seen by movement pulses.
type moveEnv struct{ w *World }

func (e moveEnv) Find(m pathing.Traveller, t pathing.Target, approach bool, s pathing.Strategy) pathing.Path {
	return e.w.finder.Find(m, t, approach, s)
}

func (e moveEnv) CanMove(d model.Direction, l model.Location) bool {
	return e.w.clip.CanMove(d, l)
}

func (e moveEnv) SendMessage(m runtime.Mover, text string) {
	ent, ok := m.(*model.Entity)
	if !ok {
		return
	}
	e.w.emit(ent, protocol.Event{
		"type": protocol.EventMessage,
		"to":   ent.ID,
		"text": text,
	})
}

func (e moveEnv) ClearMovementFlag(m runtime.Mover) {
	ent, ok := m.(*model.Entity)
	if !ok {
		return
	}
	e.w.emit(ent, protocol.Event{
		"type": protocol.EventClearFlag,
		"to":   ent.ID,
	})
}

// emit stamps ev with the current tick, delivers it to ent and records it for the tick log.
func (w *World) emit(ent *model.Entity, ev protocol.Event) {
	ev["t"] = w.tick.Load()
	if ent != nil {
		ent.AddEvent(ev)
	}
	w.tickEvents = append(w.tickEvents, ev)
}
