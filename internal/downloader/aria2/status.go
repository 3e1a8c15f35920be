package aria2dl

import (
	"context"
	"strconv"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
)

// statusKeys limits tellStatus replies to what StatusView needs.
var statusKeys = []string{
	"gid", "status", "totalLength", "completedLength", "downloadSpeed",
	"errorCode", "errorMessage", "dir", "files",
}

// tellStatus is the aria2 tellStatus reply. aria2 encodes numbers as strings.
type tellStatus struct {
	GID             string       `json:"gid"`
	Status          string       `json:"status"`
	TotalLength     string       `json:"totalLength"`
	CompletedLength string       `json:"completedLength"`
	DownloadSpeed   string       `json:"downloadSpeed"`
	ErrorCode       string       `json:"errorCode"`
	ErrorMessage    string       `json:"errorMessage"`
	Dir             string       `json:"dir"`
	Files           []fileStatus `json:"files"`
}

type fileStatus struct {
	Path            string `json:"path"`
	Length          string `json:"length"`
	CompletedLength string `json:"completedLength"`
	Selected        string `json:"selected"`
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (ts tellStatus) view(gid string) data.StatusView {
	v := data.StatusView{
		GID:          gid,
		State:        data.ParseLifecycleState(ts.Status),
		TotalBytes:   parseInt(ts.TotalLength),
		Completed:    parseInt(ts.CompletedLength),
		Speed:        parseInt(ts.DownloadSpeed),
		ErrorMessage: ts.ErrorMessage,
		Dir:          ts.Dir,
	}
	// aria2 reports errorCode "0" for healthy downloads.
	if ts.ErrorCode != "" && ts.ErrorCode != "0" {
		v.ErrorCode = ts.ErrorCode
	}
	if ts.GID != "" {
		v.GID = ts.GID
	}
	for _, f := range ts.Files {
		v.Files = append(v.Files, data.FileStatus{
			Path:      f.Path,
			Length:    parseInt(f.Length),
			Completed: parseInt(f.CompletedLength),
			Selected:  f.Selected != "false",
		})
	}
	return v
}

// Status issues one batched aria2.tellStatus for all gids. A slot whose
// lookup failed carries its error; the GID is always filled in.
func (a *Adapter) Status(ctx context.Context, gids []string) ([]downloader.Result[data.StatusView], error) {
	reqs := make([]aria2.Request, len(gids))
	for i, gid := range gids {
		reqs[i] = aria2.Request{Method: "aria2.tellStatus", Params: []any{gid, statusKeys}, GID: gid}
	}
	res, err := a.cl.Batch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	out := make([]downloader.Result[data.StatusView], len(res))
	for i, r := range res {
		var ts tellStatus
		if err := r.Decode(&ts); err != nil {
			out[i] = downloader.Result[data.StatusView]{
				Value: data.StatusView{GID: gids[i], State: data.StateUnknown, Err: err.Error()},
				Err:   err,
			}
			continue
		}
		out[i] = downloader.Result[data.StatusView]{Value: ts.view(gids[i])}
	}
	return out, nil
}
