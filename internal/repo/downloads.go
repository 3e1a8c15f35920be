package repo

import (
	"context"

	"github.com/lionzhd/lionz/internal/data"
)

// DownloadRefRepo persists the links between catalog items and daemon GIDs.
// Refs are created and deleted, never updated.
type DownloadRefRepo interface {
	DownloadRefReader
	DownloadRefWriter
}

type DownloadRefReader interface {
	// Find returns refs matching the natural key, newest first.
	Find(ctx context.Context, f data.RefFilter) (data.DownloadRefs, error)
	// List pages through all refs, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit, offset int) (data.DownloadRefs, error)
	Get(ctx context.Context, id int64) (*data.DownloadRef, error)
	GetByGID(ctx context.Context, gid string) (*data.DownloadRef, error)
}

type DownloadRefWriter interface {
	// Create stores ref, assigning ID and timestamps. A duplicate GID returns
	// data.ErrConflict.
	Create(ctx context.Context, ref *data.DownloadRef) (*data.DownloadRef, error)
	Delete(ctx context.Context, id int64) error
}
