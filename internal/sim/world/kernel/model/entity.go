package model

import "tilewalk.ai/internal/protocol"

type Kind string

const (
	KindPlayer Kind = "PLAYER"
	KindNPC    Kind = "NPC"
)

// Region is a map region; movers in an inactive region do not path.
type Region struct {
	ID     string
	Active bool
}

// Entity is a mobile node: a player or an NPC.
type Entity struct {
	ID        string
	Name      string
	Kind      Kind
	Pos       Location
	Footprint int
	Removed   bool

	// NoWalk marks NPCs whose movement is animation only.
	NoWalk bool

	Region *Region
	Facing Node

	Walk *WalkingQueue

	Events []protocol.Event
	// Monotonic count of events delivered to this entity.
	EventCursor uint64
}

func NewEntity(id string, kind Kind, pos Location, footprint int) *Entity {
	e := &Entity{
		ID:        id,
		Name:      id,
		Kind:      kind,
		Pos:       pos,
		Footprint: footprint,
	}
	e.Walk = NewWalkingQueue(e.Location)
	return e
}

func (e *Entity) Location() Location { return e.Pos }

func (e *Entity) Size() int {
	if e.Footprint < 1 {
		return 1
	}
	return e.Footprint
}

func (e *Entity) Active() bool { return !e.Removed }

func (e *Entity) WalkingQueue() *WalkingQueue { return e.Walk }

// Face points the entity at target; nil clears the facing.
func (e *Entity) Face(target Node) { e.Facing = target }

func (e *Entity) RegionActive() bool { return e.Region != nil && e.Region.Active }

func (e *Entity) IsPlayer() bool { return e.Kind == KindPlayer }

func (e *Entity) NeverWalks() bool { return e.Kind == KindNPC && e.NoWalk }

// FacingID returns the id of the faced node, if it has one.
func (e *Entity) FacingID() string {
	switch f := e.Facing.(type) {
	case *Entity:
		return f.ID
	case *Object:
		return f.ID
	default:
		return ""
	}
}

func (e *Entity) AddEvent(ev protocol.Event) {
	e.Events = append(e.Events, ev)
	e.EventCursor++
	if len(e.Events) > 4096 {
		e.Events = append([]protocol.Event(nil), e.Events[len(e.Events)-4096:]...)
	}
}

func (e *Entity) TakeEvents() []protocol.Event {
	ev := e.Events
	e.Events = nil
	return ev
}
