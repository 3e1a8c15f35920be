package aria2dl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
)

// Ping performs a lightweight RPC to check aria2 liveness/readiness.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.cl.Call(ctx, aria2.Request{Method: "aria2.getVersion"})
	return err
}

func addURIRequest(s downloader.Submission) aria2.Request {
	return aria2.Request{
		Method: "aria2.addUri",
		Params: []any{s.URIs, stringOptions(s.Options)},
	}
}

// Add: aria2.addUri([token?, [uris], options])
func (a *Adapter) Add(ctx context.Context, s downloader.Submission) (string, error) {
	if len(s.URIs) == 0 {
		return "", fmt.Errorf("%w: submission without uris", data.ErrInvalidArgument)
	}
	var gid string
	if err := a.cl.CallInto(ctx, addURIRequest(s), &gid); err != nil {
		return "", err
	}
	a.log.Debug("aria2 addUri", "gid", gid, "out", s.Options["out"])
	return gid, nil
}

// AddBatch submits every submission in one batch. Slot i carries the GID or
// the daemon's error for subs[i].
func (a *Adapter) AddBatch(ctx context.Context, subs []downloader.Submission) ([]downloader.Result[string], error) {
	reqs := make([]aria2.Request, len(subs))
	for i, s := range subs {
		reqs[i] = addURIRequest(s)
	}
	res, err := a.cl.Batch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	out := make([]downloader.Result[string], len(res))
	for i, r := range res {
		var gid string
		if err := r.Decode(&gid); err != nil {
			out[i] = downloader.Result[string]{Err: err}
			continue
		}
		out[i] = downloader.Result[string]{Value: gid}
	}
	return out, nil
}

// Pause: aria2.pause([token?, gid])
func (a *Adapter) Pause(ctx context.Context, gid string) error {
	return a.gidCall(ctx, "aria2.pause", gid)
}

// Resume: aria2.unpause([token?, gid])
func (a *Adapter) Resume(ctx context.Context, gid string) error {
	return a.gidCall(ctx, "aria2.unpause", gid)
}

// Cancel: aria2.remove([token?, gid])
func (a *Adapter) Cancel(ctx context.Context, gid string) error {
	return a.gidCall(ctx, "aria2.remove", gid)
}

// Purge: aria2.removeDownloadResult([token?, gid]). A GID the daemon no
// longer knows is already purged.
func (a *Adapter) Purge(ctx context.Context, gid string) error {
	err := a.gidCall(ctx, "aria2.removeDownloadResult", gid)
	if err != nil && aria2.IsNotFound(err) {
		a.log.Debug("aria2 purge: gid already gone", "gid", gid)
		return nil
	}
	return err
}

func (a *Adapter) gidCall(ctx context.Context, method, gid string) error {
	if gid == "" {
		return downloader.ErrNotFound
	}
	_, err := a.cl.Call(ctx, aria2.Request{Method: method, Params: []any{gid}, GID: gid})
	if err != nil && aria2.IsNotFound(err) {
		return fmt.Errorf("%w: %w", downloader.ErrNotFound, err)
	}
	return err
}

// stringOptions renders option values the way aria2 expects them: strings.
func stringOptions(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, val := range in {
		switch v := val.(type) {
		case nil:
			continue
		case string:
			out[k] = v
		case bool:
			out[k] = strconv.FormatBool(v)
		case int:
			out[k] = strconv.Itoa(v)
		case int64:
			out[k] = strconv.FormatInt(v, 10)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
