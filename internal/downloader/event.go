package downloader

// Event is a state change pushed by the daemon for one GID.
type Event struct {
	GID  string
	Type EventType
}

// EventType defines the set of events that downloaders may emit.
type EventType string

const (
	EventStart    EventType = "start"
	EventPaused   EventType = "pause"
	EventStopped  EventType = "stop"
	EventComplete EventType = "complete"
	EventFailed   EventType = "error"
	EventUnknown  EventType = "unknown"
)
