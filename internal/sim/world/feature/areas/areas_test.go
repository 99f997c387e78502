package areas

import (
	"testing"

	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
)

func TestAreaContainsChecksPlane(t *testing.T) {
	a := Area{ID: "yard", Min: model.Loc(5, 5, 0), Max: model.Loc(2, 2, 0)}
	if !a.Contains(model.Loc(3, 4, 0)) {
		t.Fatalf("expected inside")
	}
	if a.Contains(model.Loc(3, 4, 1)) {
		t.Fatalf("other plane must not match")
	}
}

func TestTriggerFiresOncePerMoverPerArea(t *testing.T) {
	var fired []string
	tr := NewTrigger(func(m runtime.Mover, a Area) {
		fired = append(fired, m.(*model.Entity).ID+":"+a.ID)
	},
		Area{ID: "gate", Min: model.Loc(0, 0, 0), Max: model.Loc(1, 1, 0)},
		Area{ID: "hall", Min: model.Loc(1, 1, 0), Max: model.Loc(4, 4, 0)},
	)
	p1 := model.NewEntity("p1", model.KindPlayer, model.Loc(0, 0, 0), 1)
	p2 := model.NewEntity("p2", model.KindPlayer, model.Loc(0, 0, 0), 1)

	var hook runtime.LocationHook = tr.Observe
	hook(p1, model.Loc(0, 0, 0))
	hook(p1, model.Loc(1, 1, 0))
	hook(p1, model.Loc(0, 1, 0))
	hook(p2, model.Loc(3, 3, 0))

	want := []string{"p1:gate", "p1:hall", "p2:hall"}
	if len(fired) != len(want) {
		t.Fatalf("fired=%v want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired=%v want %v", fired, want)
		}
	}
	if !tr.Entered(p2, "hall") || tr.Entered(p2, "gate") {
		t.Fatalf("Entered bookkeeping wrong")
	}
}
