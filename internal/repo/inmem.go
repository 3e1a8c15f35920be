package repo

import (
	"context"
	"sync"
	"time"

	"github.com/lionzhd/lionz/internal/data"
)

type InMemoryDownloadRefRepo struct {
	mu     sync.RWMutex
	refs   data.DownloadRefs
	nextID int64
	now    func() time.Time
}

func NewInMemoryDownloadRefRepo() *InMemoryDownloadRefRepo {
	return &InMemoryDownloadRefRepo{
		refs:   make(data.DownloadRefs, 0),
		nextID: 1,
		now:    time.Now,
	}
}

var _ DownloadRefRepo = (*InMemoryDownloadRefRepo)(nil)

func (r *InMemoryDownloadRefRepo) Create(ctx context.Context, ref *data.DownloadRef) (*data.DownloadRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.refs {
		if existing.GID == ref.GID {
			return nil, data.ErrConflict
		}
	}
	cp := ref.Clone()
	cp.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.refs = append(r.refs, cp)
	return cp.Clone(), nil
}

// newestFirst returns refs in reverse insertion order.
func (r *InMemoryDownloadRefRepo) newestFirst(keep func(*data.DownloadRef) bool) data.DownloadRefs {
	out := make(data.DownloadRefs, 0)
	for i := len(r.refs) - 1; i >= 0; i-- {
		if keep == nil || keep(r.refs[i]) {
			out = append(out, r.refs[i].Clone())
		}
	}
	return out
}

func (r *InMemoryDownloadRefRepo) Find(ctx context.Context, f data.RefFilter) (data.DownloadRefs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(f.Matches), nil
}

func (r *InMemoryDownloadRefRepo) List(ctx context.Context, limit, offset int) (data.DownloadRefs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.newestFirst(nil)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return data.DownloadRefs{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *InMemoryDownloadRefRepo) Get(ctx context.Context, id int64) (*data.DownloadRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range r.refs {
		if ref.ID == id {
			return ref.Clone(), nil
		}
	}
	return nil, data.ErrNotFound
}

func (r *InMemoryDownloadRefRepo) GetByGID(ctx context.Context, gid string) (*data.DownloadRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range r.refs {
		if ref.GID == gid {
			return ref.Clone(), nil
		}
	}
	return nil, data.ErrNotFound
}

func (r *InMemoryDownloadRefRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ref := range r.refs {
		if ref.ID == id {
			r.refs = append(r.refs[:i], r.refs[i+1:]...)
			return nil
		}
	}
	return data.ErrNotFound
}
