package aria2dl

import (
	"context"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/downloader"
)

func eventType(n aria2.Notification) downloader.EventType {
	switch n.EventType() {
	case "start":
		return downloader.EventStart
	case "pause":
		return downloader.EventPaused
	case "stop":
		return downloader.EventStopped
	case "complete":
		return downloader.EventComplete
	case "error":
		return downloader.EventFailed
	default:
		return downloader.EventUnknown
	}
}

// Events subscribes to aria2 notifications and converts them into downloader
// events, one per GID in each notification.
func (a *Adapter) Events(ctx context.Context) (<-chan downloader.Event, error) {
	ch, err := a.cl.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan downloader.Event, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				typ := eventType(n)
				for _, p := range n.Params {
					if p.GID == "" {
						continue
					}
					select {
					case out <- downloader.Event{GID: p.GID, Type: typ}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}
