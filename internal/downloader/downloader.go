package downloader

import (
	"context"
	"errors"

	"github.com/lionzhd/lionz/internal/data"
)

// ErrNotFound is returned when the daemon cannot locate a download by GID.
var ErrNotFound = errors.New("downloader: gid not found")

// Submission is one download request handed to the daemon.
type Submission struct {
	URIs []string
	// Options are daemon options such as "out" or "max-tries".
	Options map[string]any
}

// Result is one slot of a batched operation. Exactly one of Value or Err is
// meaningful; a failed slot never affects its neighbours.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// Downloader is the surface of the remote download daemon used by the service.
type Downloader interface {
	// Add submits one download and returns the daemon-assigned GID.
	Add(ctx context.Context, s Submission) (string, error)
	// AddBatch submits all downloads in a single round trip.
	AddBatch(ctx context.Context, subs []Submission) ([]Result[string], error)
	// Status looks up every GID in a single round trip, in order.
	Status(ctx context.Context, gids []string) ([]Result[data.StatusView], error)
	Pause(ctx context.Context, gid string) error
	Resume(ctx context.Context, gid string) error
	// Cancel stops the transfer; the daemon keeps its result entry.
	Cancel(ctx context.Context, gid string) error
	// Purge drops the daemon's stopped-download result. It must be idempotent.
	Purge(ctx context.Context, gid string) error
	Ping(ctx context.Context) error
}

// EventSource is implemented by downloaders that emit asynchronous events.
type EventSource interface {
	Events(ctx context.Context) (<-chan Event, error)
}
