package world

import (
	"context"
	"time"
)

// Run ticks the world at the configured rate until ctx is done or Stop is called.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []MoveRequest
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.inbox:
			pending = append(pending, req)
		case <-ticker.C:
			w.stepInternal(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// RunTicks steps n ticks back to back.
func (w *World) RunTicks(n int) {
	for i := 0; i < n; i++ {
		w.Step()
	}
}

// Idle reports whether no movement task is scheduled and nothing is queued for a future tick.
func (w *World) Idle() bool {
	return w.sched.Len() == 0 && len(w.scheduled) == 0
}
