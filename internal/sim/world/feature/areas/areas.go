package areas

import (
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
)

// Area is a rectangle on one plane, corners inclusive.
type Area struct {
	ID  string
	Min model.Location
	Max model.Location
}

func (a Area) Contains(l model.Location) bool {
	return l.Plane == a.Min.Plane && l.IsInside(a.Min, a.Max)
}

// Trigger fires onEnter the first time each mover stands in each area.
type Trigger struct {
	areas   []Area
	seen    map[runtime.Mover]map[string]bool
	onEnter func(m runtime.Mover, a Area)
}

func NewTrigger(onEnter func(m runtime.Mover, a Area), areas ...Area) *Trigger {
	return &Trigger{
		areas:   append([]Area(nil), areas...),
		seen:    map[runtime.Mover]map[string]bool{},
		onEnter: onEnter,
	}
}

func (t *Trigger) Add(a Area) { t.areas = append(t.areas, a) }

// Observe matches runtime.LocationHook.
func (t *Trigger) Observe(m runtime.Mover, loc model.Location) {
	for _, a := range t.areas {
		if !a.Contains(loc) {
			continue
		}
		seen := t.seen[m]
		if seen == nil {
			seen = map[string]bool{}
			t.seen[m] = seen
		}
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if t.onEnter != nil {
			t.onEnter(m, a)
		}
	}
}

// Entered reports whether m has been seen in the area with the given id.
func (t *Trigger) Entered(m runtime.Mover, id string) bool {
	return t.seen[m][id]
}
