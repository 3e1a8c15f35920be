package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/repo"
	"github.com/lionzhd/lionz/internal/router"
	"github.com/lionzhd/lionz/internal/service"
	"github.com/lionzhd/lionz/internal/xtream"
)

const testToken = "testtoken"

// memDaemon is a tiny in-process stand-in for the download daemon.
type memDaemon struct {
	mu     sync.Mutex
	next   int
	states map[string]data.LifecycleState
	reject map[string]bool // out paths to reject
}

func (d *memDaemon) add(s downloader.Submission) (string, error) {
	if out, _ := s.Options["out"].(string); d.reject[out] {
		return "", errors.New("No URI to download.")
	}
	d.next++
	gid := fmt.Sprintf("gid%d", d.next)
	d.states[gid] = data.StateActive
	return gid, nil
}

func (d *memDaemon) Add(ctx context.Context, s downloader.Submission) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.add(s)
}

func (d *memDaemon) AddBatch(ctx context.Context, subs []downloader.Submission) ([]downloader.Result[string], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]downloader.Result[string], len(subs))
	for i, s := range subs {
		out[i].Value, out[i].Err = d.add(s)
	}
	return out, nil
}

func (d *memDaemon) Status(ctx context.Context, gids []string) ([]downloader.Result[data.StatusView], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]downloader.Result[data.StatusView], len(gids))
	for i, gid := range gids {
		st, ok := d.states[gid]
		if !ok {
			err := fmt.Errorf("GID %s is not found", gid)
			out[i] = downloader.Result[data.StatusView]{Value: data.StatusView{GID: gid, State: data.StateUnknown, Err: err.Error()}, Err: err}
			continue
		}
		out[i].Value = data.StatusView{GID: gid, State: st}
	}
	return out, nil
}

func (d *memDaemon) set(gid string, st data.LifecycleState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.states[gid]; !ok {
		return downloader.ErrNotFound
	}
	d.states[gid] = st
	return nil
}

func (d *memDaemon) Pause(ctx context.Context, gid string) error  { return d.set(gid, data.StatePaused) }
func (d *memDaemon) Resume(ctx context.Context, gid string) error { return d.set(gid, data.StateActive) }
func (d *memDaemon) Cancel(ctx context.Context, gid string) error { return d.set(gid, data.StateRemoved) }
func (d *memDaemon) Purge(ctx context.Context, gid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, gid)
	return nil
}
func (d *memDaemon) Ping(ctx context.Context) error { return nil }

type metadata struct{ t *testing.T }

func (m metadata) VodInfo(ctx context.Context, id int) (*xtream.VodInfo, error) {
	if id != 42 {
		return nil, fmt.Errorf("vod %d: %w", id, data.ErrNotFound)
	}
	return xtream.ParseVodInfo(42, []byte(`{"movie_data": {"stream_id": 42, "name": "Foo", "container_extension": "mp4"}}`))
}

func (m metadata) SeriesInfo(ctx context.Context, id int) (*xtream.SeriesInfo, error) {
	if id != 7 {
		return nil, fmt.Errorf("series %d: %w", id, data.ErrNotFound)
	}
	return xtream.ParseSeriesInfo(7, []byte(`{"info": {"name": "Show"}, "episodes": {"1": [
		{"id": "701", "episode_num": 1, "title": "One", "container_extension": "mkv", "season": 1},
		{"id": "702", "episode_num": 2, "title": "Two", "container_extension": "mkv", "season": 1},
		{"id": "703", "episode_num": 3, "title": "Three", "container_extension": "mkv", "season": 1}
	]}}`))
}

type invalidations struct{ keys []string }

func (i *invalidations) Invalidate(ctx context.Context, kind data.MediaKind, id int) error {
	i.keys = append(i.keys, fmt.Sprintf("%s/%d", kind, id))
	return nil
}

type fixture struct {
	h      http.Handler
	daemon *memDaemon
	inv    *invalidations
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	daemon := &memDaemon{states: map[string]data.LifecycleState{}, reject: map[string]bool{}}
	resolver := catalog.NewResolver(metadata{t})
	svc := service.NewDownload(repo.NewInMemoryDownloadRefRepo(), daemon, resolver, service.Config{
		Credentials: xtream.Credentials{BaseURL: "http://upstream.example", Username: "u", Password: "p"},
	})
	inv := &invalidations{}
	h := router.New(logger, router.Deps{Service: svc, Downloader: daemon, Resolver: resolver, Cache: inv, Token: testToken})
	return &fixture{h: h, daemon: daemon, inv: inv}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestMovieLifecycle(t *testing.T) {
	f := setup(t)

	rr := f.do(t, http.MethodGet, "/v1/downloads", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rr.Code)
	}
	if list := decode[[]map[string]any](t, rr); len(list) != 0 {
		t.Fatalf("expected empty list got %v", list)
	}

	rr = f.do(t, http.MethodPost, "/v1/movies/42/download", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[service.LaunchResult](t, rr)
	if created.GID != "gid1" || created.Path != "movies/Foo/Foo.mp4" {
		t.Fatalf("unexpected launch: %+v", created)
	}

	rr = f.do(t, http.MethodPost, "/v1/movies/42/download", `{"options":{"max-tries":3}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("second launch: expected 200 got %d", rr.Code)
	}
	if again := decode[service.LaunchResult](t, rr); !again.AlreadyActive || again.GID != "gid1" {
		t.Fatalf("expected already active: %+v", again)
	}

	rr = f.do(t, http.MethodGet, "/v1/downloads", "")
	list := decode[[]map[string]any](t, rr)
	if len(list) != 1 || list[0]["gid"] != "gid1" {
		t.Fatalf("unexpected list: %v", list)
	}
	status := list[0]["downloadStatus"].(map[string]any)
	if status["status"] != "active" {
		t.Fatalf("unexpected status: %v", status)
	}
	id := strconv.Itoa(int(list[0]["id"].(float64)))

	rr = f.do(t, http.MethodPatch, "/v1/downloads/"+id, `{"action":"pause"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("pause: expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPatch, "/v1/downloads/"+id, `{"action":"pause"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("pause twice: expected 409 got %d", rr.Code)
	}

	rr = f.do(t, http.MethodDelete, "/v1/downloads/"+id, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", rr.Code)
	}
	rr = f.do(t, http.MethodDelete, "/v1/downloads/"+id, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete twice: expected 404 got %d", rr.Code)
	}
}

func TestUnknownMovie(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodPost, "/v1/movies/9/download", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestLaunchSingleEpisode(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodPost, "/v1/series/7/seasons/1/episodes/2/download", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	if res := decode[service.LaunchResult](t, rr); res.Path != "shows/Show/Season 01/Two.mkv" {
		t.Fatalf("path = %q", res.Path)
	}
}

func TestBatchEpisodesPartialFailure(t *testing.T) {
	f := setup(t)
	f.daemon.reject["shows/Show/Season 01/Two.mkv"] = true

	rr := f.do(t, http.MethodPost, "/v1/series/7/episodes/download",
		`{"episodes":[{"season":1,"episode":1},{"season":1,"episode":2},{"season":1,"episode":3}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []struct {
			Index  int                   `json:"index"`
			Result *service.LaunchResult `json:"result"`
			Error  *struct {
				Error string `json:"error"`
			} `json:"error"`
		} `json:"results"`
		Failed int `json:"failed"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Failed != 1 || len(resp.Results) != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[1].Error == nil || resp.Results[0].Result == nil || resp.Results[2].Result == nil {
		t.Fatalf("unexpected entries: %+v", resp.Results)
	}

	rr = f.do(t, http.MethodGet, "/v1/downloads", "")
	if list := decode[[]map[string]any](t, rr); len(list) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(list))
	}
}

func TestBatchEpisodesUnknownEpisodeFailsAlone(t *testing.T) {
	f := setup(t)

	rr := f.do(t, http.MethodPost, "/v1/series/7/episodes/download",
		`{"episodes":[{"season":1,"episode":1},{"season":1,"episode":99},{"season":1,"episode":3}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []struct {
			Index  int                   `json:"index"`
			Result *service.LaunchResult `json:"result"`
			Error  *struct {
				Kind string `json:"kind"`
			} `json:"error"`
		} `json:"results"`
		Failed int `json:"failed"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Failed != 1 || len(resp.Results) != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	for i, e := range resp.Results {
		if e.Index != i {
			t.Fatalf("entry %d has index %d", i, e.Index)
		}
	}
	if e := resp.Results[1].Error; e == nil || e.Kind != "not_found" {
		t.Fatalf("S01E99: expected not_found entry error, got %+v", resp.Results[1])
	}
	if resp.Results[0].Result == nil || resp.Results[2].Result == nil {
		t.Fatalf("resolvable episodes should launch: %+v", resp.Results)
	}

	rr = f.do(t, http.MethodGet, "/v1/downloads", "")
	if list := decode[[]map[string]any](t, rr); len(list) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(list))
	}
}

func TestBatchRequiresEpisodes(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodPost, "/v1/series/7/episodes/download", `{"episodes":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	rr = f.do(t, http.MethodPost, "/v1/series/7/episodes/download", `{"bogus":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400 got %d", rr.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := setup(t)
	f.do(t, http.MethodPost, "/v1/movies/42/download", "")

	rr := f.do(t, http.MethodGet, "/v1/downloads/status?gid=gid1&gid=missing", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	views := decode[[]map[string]any](t, rr)
	if len(views) != 2 || views[0]["status"] != "active" || views[1]["error"] == nil {
		t.Fatalf("unexpected views: %v", views)
	}

	rr = f.do(t, http.MethodGet, "/v1/downloads/status", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("no gids: expected 400 got %d", rr.Code)
	}
}

func TestPatchValidation(t *testing.T) {
	f := setup(t)
	rr := f.do(t, http.MethodPatch, "/v1/downloads/1", `{"action":"explode"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPatch, "/v1/downloads/1", bytes.NewBufferString(`{"action":"pause"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 got %d", w.Code)
	}
}

func TestCacheInvalidation(t *testing.T) {
	f := setup(t)
	if rr := f.do(t, http.MethodDelete, "/v1/movies/42/cache", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("movie: expected 204 got %d", rr.Code)
	}
	if rr := f.do(t, http.MethodDelete, "/v1/series/7/cache", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("series: expected 204 got %d", rr.Code)
	}
	if len(f.inv.keys) != 2 || f.inv.keys[0] != "movie/42" || f.inv.keys[1] != "series/7" {
		t.Fatalf("invalidations = %v", f.inv.keys)
	}
}
