package observerproto

import "tilewalk.ai/internal/protocol"

// Version is the observer protocol version (separate from the event protocol).
const Version = "0.1"

// HTTP response for GET /v1/observe/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string `json:"protocol_version"`
	WorldID         string `json:"world_id"`
	Tick            uint64 `json:"tick"`
	TickRateHz      int    `json:"tick_rate_hz"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	WorldID         string `json:"world_id"`
	Tick            uint64 `json:"tick"`

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
