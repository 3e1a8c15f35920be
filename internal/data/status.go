package data

import "strings"

// LifecycleState is the daemon-reported state of one download.
type LifecycleState string

const (
	StateUnknown  LifecycleState = "unknown"
	StateActive   LifecycleState = "active"
	StateWaiting  LifecycleState = "waiting"
	StatePaused   LifecycleState = "paused"
	StateError    LifecycleState = "error"
	StateComplete LifecycleState = "complete"
	StateRemoved  LifecycleState = "removed"
)

// ParseLifecycleState maps a daemon status string, defaulting to unknown.
func ParseLifecycleState(s string) LifecycleState {
	switch st := LifecycleState(strings.ToLower(strings.TrimSpace(s))); st {
	case StateActive, StateWaiting, StatePaused, StateError, StateComplete, StateRemoved:
		return st
	default:
		return StateUnknown
	}
}

// DownloadedOrDownloading is the "already active" predicate used for dedup.
func (s LifecycleState) DownloadedOrDownloading() bool {
	switch s {
	case StateActive, StateWaiting, StatePaused, StateComplete:
		return true
	default:
		return false
	}
}

// Action is a user-initiated control operation on an existing download.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
	ActionRemove Action = "remove"
	ActionRetry  Action = "retry"
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPause, ActionResume, ActionCancel, ActionRemove, ActionRetry:
		return a, true
	default:
		return "", false
	}
}

// CanTake reports whether action is legal from state s.
func (s LifecycleState) CanTake(a Action) bool {
	switch s {
	case StateActive:
		return a == ActionPause || a == ActionCancel || a == ActionRemove
	case StateWaiting:
		return a == ActionCancel || a == ActionRemove
	case StatePaused:
		return a == ActionResume || a == ActionCancel || a == ActionRemove
	case StateError:
		return a == ActionRetry || a == ActionRemove
	case StateComplete:
		return a == ActionRemove
	default:
		return false
	}
}

// FileStatus is one file entry of a daemon download.
type FileStatus struct {
	Path      string `json:"path"`
	Length    int64  `json:"length"`
	Completed int64  `json:"completed"`
	Selected  bool   `json:"selected"`
}

// StatusView is the merged, display-ready status of one GID. It is rebuilt on
// every read and never persisted. Err carries a per-slot lookup failure.
type StatusView struct {
	GID          string         `json:"gid"`
	State        LifecycleState `json:"status"`
	TotalBytes   int64          `json:"totalLength"`
	Completed    int64          `json:"completedLength"`
	Speed        int64          `json:"downloadSpeed"`
	ErrorCode    string         `json:"errorCode,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Dir          string         `json:"dir,omitempty"`
	Files        []FileStatus   `json:"files,omitempty"`
	Err          string         `json:"error,omitempty"`
}

// Failed reports whether the lookup for this slot failed.
func (v StatusView) Failed() bool { return v.Err != "" }

// Progress returns completion in [0,1]; zero when the size is unknown.
func (v StatusView) Progress() float64 {
	if v.TotalBytes <= 0 {
		return 0
	}
	return float64(v.Completed) / float64(v.TotalBytes)
}

// RefWithStatus joins a persisted ref with its live status.
type RefWithStatus struct {
	*DownloadRef
	Status StatusView `json:"downloadStatus"`
}
