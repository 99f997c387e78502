package world

import (
	"errors"

	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/tasks"
	"tilewalk.ai/internal/sim/world/feature/movement/runtime"
	"tilewalk.ai/internal/sim/world/kernel/model"
)

var (
	ErrUnknownMover = errors.New("unknown mover")
	ErrUnknownNode  = errors.New("unknown node")
)

// TickSink receives one record per tick. Sinks must not feed back into the simulation.
type TickSink interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick   uint64           `json:"tick"`
	Movers []MoverState     `json:"movers"`
	Events []protocol.Event `json:"events,omitempty"`
}

type MoverState struct {
	ID      string `json:"id"`
	Pos     [3]int `json:"pos"`
	Moving  bool   `json:"moving,omitempty"`
	Running bool   `json:"running,omitempty"`
	Facing  string `json:"facing,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	State   string `json:"state,omitempty"`
}

// MoveRequest asks the world to move an entity. TargetID names an entity or
// object; when empty the mover walks onto Pos.
type MoveRequest struct {
	MoverID  string
	TargetID string
	Pos      model.Location
	Kind     tasks.Kind
	Options  []runtime.Option

	Resp chan<- MoveResult
}

type MoveResult struct {
	TaskID string
	Err    error
}

// Outcome is a finished movement task as reported to callers.
type Outcome struct {
	Tick    uint64
	TaskID  string
	MoverID string
	Kind    tasks.Kind
	Result  runtime.Outcome
}
