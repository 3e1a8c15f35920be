// Package reconciler watches daemon notifications for downloads lionz
// launched. Refs are immutable, so the watcher only logs and counts; the
// live state is always re-read through the status aggregator.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/lionzhd/lionz/internal/repo"
)

// Watcher consumes downloader events.
type Watcher struct {
	refs   repo.DownloadRefReader
	events <-chan downloader.Event
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher over events. Events for GIDs without a ref are
// ignored.
func New(log *slog.Logger, refs repo.DownloadRefReader, events <-chan downloader.Event) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{refs: refs, events: events, log: log, ctx: context.Background()}
}

// Run starts the watch loop.
func (w *Watcher) Run() {
	w.stop = make(chan struct{})
	w.ctx, w.cancel = context.WithCancel(w.ctx)
	// Tag this run with a stable operation_id for easier correlation.
	w.log = w.log.With("operation_id", uuid.NewString())
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.stop:
				return
			case e, ok := <-w.events:
				if !ok {
					return
				}
				w.handle(e)
			}
		}
	}()
}

// Stop terminates the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.stop != nil {
		close(w.stop)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
	}
}

// handle reports whether the event belonged to a known ref.
func (w *Watcher) handle(e downloader.Event) bool {
	ref, err := w.refs.GetByGID(w.ctx, e.GID)
	if errors.Is(err, data.ErrNotFound) {
		w.log.Debug("ignoring event for unknown gid", "gid", e.GID, "type", e.Type)
		return false
	}
	if err != nil {
		w.log.Error("lookup ref", "gid", e.GID, "err", err)
		return false
	}
	metrics.DownloadEvents.WithLabelValues(string(e.Type)).Inc()

	log := w.log.With("gid", e.GID, "ref_id", ref.ID, "media_kind", ref.MediaKind, "media_id", ref.MediaID)
	switch e.Type {
	case downloader.EventFailed:
		log.Warn("download failed")
	case downloader.EventComplete:
		log.Info("download complete")
	case downloader.EventUnknown:
		log.Warn("unknown event type")
	default:
		log.Info("download event", "type", e.Type)
	}
	return true
}
