package world

import (
	"fmt"

	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
)

type movement struct {
	id    string
	mover *model.Entity
	pulse *runtime.Pulse
}

func (w *World) newTaskID() string {
	n := w.nextTaskNum.Add(1)
	return fmt.Sprintf("T%06d", n)
}

// StartMovement starts a movement task for moverID towards dest. A task the
// mover already owns is cancelled first; it observes the cancellation on its
// next update, before the new task runs.
func (w *World) StartMovement(moverID string, dest model.Node, opts ...runtime.Option) (string, error) {
	e := w.entities[moverID]
	if e == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownMover, moverID)
	}
	if dest == nil {
		return "", ErrUnknownNode
	}
	if cur := w.moving[moverID]; cur != nil {
		cur.pulse.Cancel()
	}

	all := make([]runtime.Option, 0, len(opts)+len(w.hooks)+1)
	all = append(all, runtime.WithStrategy(w.tune.Strategy(e.IsPlayer())))
	for _, h := range w.hooks {
		all = append(all, runtime.WithLocationHook(h))
	}
	all = append(all, opts...)

	p := runtime.NewPulse(moveEnv{w: w}, e, dest, all...)
	m := &movement{id: w.newTaskID(), mover: e, pulse: p}
	w.moving[moverID] = m
	w.byTask[p] = m
	w.sched.Submit(p)
	w.logf("task start id=%s mover=%s kind=%s dest=%s strategy=%s", m.id, moverID, p.Kind(), dest.Location(), p.Strategy())
	return m.id, nil
}

// Cancel asks the mover's current task to stop. It reports whether there was one.
func (w *World) Cancel(moverID string) (bool, error) {
	if w.entities[moverID] == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownMover, moverID)
	}
	m := w.moving[moverID]
	if m == nil {
		return false, nil
	}
	m.pulse.Cancel()
	return true, nil
}

// Movement returns the task the mover currently owns.
func (w *World) Movement(moverID string) (*runtime.Pulse, string, bool) {
	m := w.moving[moverID]
	if m == nil {
		return nil, "", false
	}
	return m.pulse, m.id, true
}

// Schedule queues a request to be applied at the start of tick at. Past ticks
// apply on the next step.
func (w *World) Schedule(at uint64, req MoveRequest) {
	if now := w.tick.Load(); at < now {
		at = now
	}
	w.scheduled[at] = append(w.scheduled[at], req)
}

// Inbox accepts requests from other goroutines while Run is looping.
func (w *World) Inbox() chan<- MoveRequest { return w.inbox }

func (w *World) applyRequest(req MoveRequest) {
	id, err := w.startRequest(req)
	if err != nil {
		w.logf("move request mover=%s target=%q: %v", req.MoverID, req.TargetID, err)
	}
	if req.Resp != nil {
		select {
		case req.Resp <- MoveResult{TaskID: id, Err: err}:
		default:
		}
	}
}

func (w *World) startRequest(req MoveRequest) (string, error) {
	var dest model.Node = model.Tile(req.Pos)
	if req.TargetID != "" {
		n, err := w.Node(req.TargetID)
		if err != nil {
			return "", err
		}
		dest = n
	}
	opts := req.Options
	if req.Kind != "" {
		opts = append([]runtime.Option{runtime.WithKind(req.Kind)}, opts...)
	}
	return w.StartMovement(req.MoverID, dest, opts...)
}

// finishTasks turns the scheduler's finished tasks into outcome events.
func (w *World) finishTasks(done []tasks.Task) {
	for _, t := range done {
		m := w.byTask[t]
		if m == nil {
			continue
		}
		delete(w.byTask, t)
		if w.moving[m.mover.ID] == m {
			delete(w.moving, m.mover.ID)
		}

		out := m.pulse.Outcome()
		ev := protocol.Event{
			"task_id": m.id,
			"kind":    string(m.pulse.Kind()),
			"mover":   m.mover.ID,
			"outcome": string(out),
		}
		switch out {
		case runtime.OutcomeArrived:
			ev["type"] = protocol.EventTaskDone
		case runtime.OutcomeUnreachable:
			ev["type"] = protocol.EventTaskFail
			ev["code"] = protocol.ErrUnreachable
		case runtime.OutcomeInvalid:
			ev["type"] = protocol.EventTaskFail
			ev["code"] = protocol.ErrInvalidTarget
		default:
			ev["type"] = protocol.EventTaskCancelled
			ev["code"] = protocol.ErrCancelled
		}
		var to *model.Entity
		if m.mover.Active() {
			to = m.mover
		}
		w.emit(to, ev)
		w.outcomes = append(w.outcomes, Outcome{
			Tick:    w.tick.Load(),
			TaskID:  m.id,
			MoverID: m.mover.ID,
			Kind:    m.pulse.Kind(),
			Result:  out,
		})
		w.logf("task %s id=%s mover=%s", ev.Type(), m.id, m.mover.ID)
	}
}

// Outcomes returns every finished task so far, in finishing order.
func (w *World) Outcomes() []Outcome {
	return append([]Outcome(nil), w.outcomes...)
}
