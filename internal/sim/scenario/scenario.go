package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/world"
	"tilewalk.ai/internal/sim/world/feature/areas"
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "https://tilewalk.ai/schemas/scenario.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

type Scenario struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Ticks       int            `yaml:"ticks"`
	Map         MapSpec        `yaml:"map"`
	Regions     []RegionSpec   `yaml:"regions"`
	Entities    []EntitySpec   `yaml:"entities"`
	Objects     []ObjectSpec   `yaml:"objects"`
	Areas       []AreaSpec     `yaml:"areas"`
	Movements   []MovementSpec `yaml:"movements"`
}

type MapSpec struct {
	Plane   int        `yaml:"plane"`
	Bounds  *BoundSpec `yaml:"bounds"`
	Blocked [][]int    `yaml:"blocked"`
	Walls   []WallSpec `yaml:"walls"`
}

type BoundSpec struct {
	Min []int `yaml:"min"`
	Max []int `yaml:"max"`
}

type WallSpec struct {
	At   []int  `yaml:"at"`
	Side string `yaml:"side"`
}

type RegionSpec struct {
	ID     string `yaml:"id"`
	Active *bool  `yaml:"active"`
}

type EntitySpec struct {
	ID        string `yaml:"id"`
	Kind      string `yaml:"kind"`
	Pos       []int  `yaml:"pos"`
	Size      int    `yaml:"size"`
	Region    string `yaml:"region"`
	NoWalk    bool   `yaml:"no_walk"`
	RunToggle bool   `yaml:"run_toggle"`
}

type ObjectSpec struct {
	ID    string `yaml:"id"`
	Pos   []int  `yaml:"pos"`
	Size  int    `yaml:"size"`
	Solid bool   `yaml:"solid"`
}

type AreaSpec struct {
	ID  string `yaml:"id"`
	Min []int  `yaml:"min"`
	Max []int  `yaml:"max"`
}

type MovementSpec struct {
	Tick     uint64 `yaml:"tick"`
	Mover    string `yaml:"mover"`
	Target   string `yaml:"target"`
	Pos      []int  `yaml:"pos"`
	Kind     string `yaml:"kind"`
	Strategy string `yaml:"strategy"`
	ForceRun bool   `yaml:"force_run"`
	Side     string `yaml:"side"`
}

func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse validates a YAML document against the scenario schema and decodes it.
func Parse(b []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	v, err := jsonValue(doc)
	if err != nil {
		return nil, err
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// jsonValue round-trips a YAML value through JSON so the validator sees JSON types.
func jsonValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// check covers the cross references the schema cannot express.
func (s *Scenario) check() error {
	ids := map[string]string{}
	claim := func(id, what string) error {
		if prev, ok := ids[id]; ok {
			return fmt.Errorf("duplicate id %q (%s and %s)", id, prev, what)
		}
		ids[id] = what
		return nil
	}
	regions := map[string]bool{world.DefaultRegionID: true}
	for _, r := range s.Regions {
		regions[r.ID] = true
	}
	for _, e := range s.Entities {
		if err := claim(e.ID, "entity"); err != nil {
			return err
		}
		if e.Region != "" && !regions[e.Region] {
			return fmt.Errorf("entity %s: unknown region %q", e.ID, e.Region)
		}
	}
	for _, o := range s.Objects {
		if err := claim(o.ID, "object"); err != nil {
			return err
		}
	}
	for i, m := range s.Movements {
		if ids[m.Mover] != "entity" {
			return fmt.Errorf("movements[%d]: unknown mover %q", i, m.Mover)
		}
		if m.Target != "" && ids[m.Target] == "" {
			return fmt.Errorf("movements[%d]: unknown target %q", i, m.Target)
		}
	}
	return nil
}

func (s *Scenario) loc(p []int) model.Location {
	l := model.Location{Plane: s.Map.Plane}
	if len(p) > 0 {
		l.X = p[0]
	}
	if len(p) > 1 {
		l.Y = p[1]
	}
	if len(p) > 2 {
		l.Plane = p[2]
	}
	return l
}

// Build creates a world holding the scenario's map, entities, objects and areas.
// Movements are not scheduled; see Apply.
func (s *Scenario) Build(cfg world.Config) (*world.World, error) {
	if cfg.ID == "" {
		cfg.ID = s.ID
	}
	w, err := world.New(cfg)
	if err != nil {
		return nil, err
	}
	clip := w.Clip()
	if b := s.Map.Bounds; b != nil {
		clip.SetBounds(model.Bounds{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]})
	}
	for _, p := range s.Map.Blocked {
		clip.Block(s.loc(p))
	}
	for _, wl := range s.Map.Walls {
		d, err := model.ParseDirection(wl.Side)
		if err != nil {
			return nil, fmt.Errorf("scenario: wall at %v: %w", wl.At, err)
		}
		clip.AddWall(s.loc(wl.At), d)
	}
	for _, r := range s.Regions {
		reg := w.Region(r.ID)
		if r.Active != nil {
			reg.Active = *r.Active
		}
	}
	for _, es := range s.Entities {
		kind := model.KindNPC
		if strings.EqualFold(es.Kind, string(model.KindPlayer)) {
			kind = model.KindPlayer
		}
		e := model.NewEntity(es.ID, kind, s.loc(es.Pos), es.Size)
		e.NoWalk = es.NoWalk
		e.Walk.RunToggle = es.RunToggle
		e.Region = w.Region(es.Region)
		if err := w.AddEntity(e); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}
	for _, ob := range s.Objects {
		o := &model.Object{ID: ob.ID, Pos: s.loc(ob.Pos), Footprint: ob.Size}
		if err := w.AddObject(o, ob.Solid); err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	}
	for _, a := range s.Areas {
		w.AddArea(areas.Area{ID: a.ID, Min: s.loc(a.Min), Max: s.loc(a.Max)})
	}
	return w, nil
}

// Apply schedules every movement request at its tick.
func (s *Scenario) Apply(w *world.World) error {
	for i, m := range s.Movements {
		req, err := s.request(m)
		if err != nil {
			return fmt.Errorf("scenario: movements[%d]: %w", i, err)
		}
		w.Schedule(m.Tick, req)
	}
	return nil
}

func (s *Scenario) request(m MovementSpec) (world.MoveRequest, error) {
	req := world.MoveRequest{
		MoverID:  m.Mover,
		TargetID: m.Target,
		Kind:     tasks.Kind(m.Kind),
	}
	if m.Target == "" {
		req.Pos = s.loc(m.Pos)
	}
	if m.Strategy != "" {
		st, err := pathing.ParseStrategy(m.Strategy)
		if err != nil {
			return req, err
		}
		req.Options = append(req.Options, runtime.WithStrategy(st))
	}
	if m.ForceRun {
		req.Options = append(req.Options, runtime.WithForceRun(true))
	}
	if m.Side != "" {
		d, err := model.ParseDirection(m.Side)
		if err != nil {
			return req, err
		}
		req.Options = append(req.Options, runtime.WithDestinationFlag(runtime.SideOf(d)))
	}
	return req, nil
}

// RunTicks is the number of ticks to run: the scenario's own count, or
// enough to reach the last scheduled movement plus slack.
func (s *Scenario) RunTicks() int {
	if s.Ticks > 0 {
		return s.Ticks
	}
	var last uint64
	for _, m := range s.Movements {
		if m.Tick > last {
			last = m.Tick
		}
	}
	return int(last) + 200
}
