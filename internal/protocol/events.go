package protocol

// Event is a loosely typed record delivered to movers and tick sinks.
type Event map[string]interface{}

// Event types.
const (
	EventTaskDone      = "TASK_DONE"
	EventTaskFail      = "TASK_FAIL"
	EventTaskCancelled = "TASK_CANCELLED"
	EventMessage       = "MESSAGE"
	EventClearFlag     = "CLEAR_FLAG"
	EventAreaEntered   = "AREA_ENTERED"
)

// Type returns the "type" field, if set.
func (e Event) Type() string {
	s, _ := e["type"].(string)
	return s
}
