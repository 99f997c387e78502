package protocol

const Version = "1.0"

// Message types.
const (
	TypeTick = "TICK"
)
