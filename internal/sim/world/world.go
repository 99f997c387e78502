package world

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/tuning"
	"tilewalk.ai/internal/sim/world/feature/areas"
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

const DefaultRegionID = "default"

type Config struct {
	ID     string
	Tuning tuning.Tuning
	// Nil means silent.
	Logger *log.Logger
}

type World struct {
	cfg  Config
	tune tuning.Tuning
	log  *log.Logger

	clip   *model.ClipMap
	finder pathing.Finder
	sched  *tasks.Scheduler

	entities map[string]*model.Entity
	objects  map[string]*placedObject
	regions  map[string]*model.Region

	moving map[string]*movement
	byTask map[tasks.Task]*movement
	hooks  []runtime.LocationHook
	areas  *areas.Trigger

	scheduled  map[uint64][]MoveRequest
	tickEvents []protocol.Event
	outcomes   []Outcome
	sinks      []TickSink

	tick        atomic.Uint64
	nextTaskNum atomic.Uint64

	inbox    chan MoveRequest
	stop     chan struct{}
	stopOnce sync.Once
}

type placedObject struct {
	obj   *model.Object
	solid bool
}

func New(cfg Config) (*World, error) {
	if cfg.ID == "" {
		cfg.ID = "world_1"
	}
	if cfg.Tuning.TickRateHz == 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	w := &World{
		cfg:       cfg,
		tune:      cfg.Tuning,
		log:       cfg.Logger,
		clip:      model.NewClipMap(),
		sched:     tasks.NewScheduler(),
		entities:  map[string]*model.Entity{},
		objects:   map[string]*placedObject{},
		regions:   map[string]*model.Region{},
		moving:    map[string]*movement{},
		byTask:    map[tasks.Task]*movement{},
		scheduled: map[uint64][]MoveRequest{},
		inbox:     make(chan MoveRequest, 1024),
		stop:      make(chan struct{}),
	}
	w.finder = pathing.NewGridFinder(w.clip, cfg.Tuning.PathConfig())
	w.regions[DefaultRegionID] = &model.Region{ID: DefaultRegionID, Active: true}
	w.areas = areas.NewTrigger(w.areaEntered)
	w.hooks = append(w.hooks, w.areas.Observe)
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Tuning() tuning.Tuning { return w.tune }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Clip() *model.ClipMap { return w.clip }

// SetFinder replaces the reference grid finder.
func (w *World) SetFinder(f pathing.Finder) {
	if f != nil {
		w.finder = f
	}
}

func (w *World) AddSink(s TickSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

// AddLocationHook installs a hook on every movement task started afterwards.
func (w *World) AddLocationHook(h runtime.LocationHook) {
	if h != nil {
		w.hooks = append(w.hooks, h)
	}
}

// AddArea registers an area; movers entering it get an AREA_ENTERED event once.
func (w *World) AddArea(a areas.Area) { w.areas.Add(a) }

func (w *World) areaEntered(m runtime.Mover, a areas.Area) {
	ent, ok := m.(*model.Entity)
	if !ok {
		return
	}
	w.emit(ent, protocol.Event{
		"type":  protocol.EventAreaEntered,
		"mover": ent.ID,
		"area":  a.ID,
	})
}

// Region returns the region with the given id, creating an active one on first use.
func (w *World) Region(id string) *model.Region {
	if id == "" {
		id = DefaultRegionID
	}
	r := w.regions[id]
	if r == nil {
		r = &model.Region{ID: id, Active: true}
		w.regions[id] = r
	}
	return r
}

func (w *World) AddEntity(e *model.Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entity id required")
	}
	if _, ok := w.entities[e.ID]; ok {
		return fmt.Errorf("duplicate entity id %q", e.ID)
	}
	if _, ok := w.objects[e.ID]; ok {
		return fmt.Errorf("id %q already used by an object", e.ID)
	}
	if e.Region == nil {
		e.Region = w.Region(DefaultRegionID)
	}
	if e.Walk == nil {
		e.Walk = model.NewWalkingQueue(e.Location)
	}
	w.entities[e.ID] = e
	return nil
}

// RemoveEntity takes an entity out of the world. Tasks that reference it end on their next update.
func (w *World) RemoveEntity(id string) error {
	e := w.entities[id]
	if e == nil {
		return ErrUnknownMover
	}
	e.Removed = true
	delete(w.entities, id)
	return nil
}

// AddObject places a stationary node. Solid objects block their footprint.
func (w *World) AddObject(o *model.Object, solid bool) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("object id required")
	}
	if _, ok := w.objects[o.ID]; ok {
		return fmt.Errorf("duplicate object id %q", o.ID)
	}
	if _, ok := w.entities[o.ID]; ok {
		return fmt.Errorf("id %q already used by an entity", o.ID)
	}
	w.objects[o.ID] = &placedObject{obj: o, solid: solid}
	if solid {
		w.clip.BlockArea(o.Pos, o.Size())
	}
	return nil
}

func (w *World) RemoveObject(id string) error {
	p := w.objects[id]
	if p == nil {
		return ErrUnknownNode
	}
	p.obj.Removed = true
	if p.solid {
		w.clip.UnblockArea(p.obj.Pos, p.obj.Size())
	}
	delete(w.objects, id)
	return nil
}

func (w *World) Entity(id string) *model.Entity { return w.entities[id] }

func (w *World) Object(id string) *model.Object {
	if p := w.objects[id]; p != nil {
		return p.obj
	}
	return nil
}

// Node looks an id up among entities first, then objects.
func (w *World) Node(id string) (model.Node, error) {
	if e := w.entities[id]; e != nil {
		return e, nil
	}
	if p := w.objects[id]; p != nil {
		return p.obj, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
}

// EntityIDs returns entity ids in sorted order.
func (w *World) EntityIDs() []string {
	ids := make([]string, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}
