package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/repo"
	"github.com/lionzhd/lionz/internal/xtream"
)

// stubDownloader records calls and lets each test script the daemon.
type stubDownloader struct {
	mu sync.Mutex

	addFn      func(downloader.Submission) (string, error)
	addBatchFn func([]downloader.Submission) ([]downloader.Result[string], error)
	states     map[string]data.LifecycleState
	statusErr  error
	purgeErr   error

	added       []downloader.Submission
	addCalls    int
	batchCalls  int
	statusCalls int
	paused      []string
	resumed     []string
	cancelled   []string
	purged      []string
}

func (s *stubDownloader) Add(ctx context.Context, sub downloader.Submission) (string, error) {
	s.mu.Lock()
	s.addCalls++
	n, fn := s.addCalls, s.addFn
	s.added = append(s.added, sub)
	s.mu.Unlock()
	if fn != nil {
		gid, err := fn(sub)
		// A real transport gives up once the request context ends.
		if err == nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return gid, err
	}
	return fmt.Sprintf("gid%d", n), nil
}

func (s *stubDownloader) AddBatch(ctx context.Context, subs []downloader.Submission) ([]downloader.Result[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchCalls++
	s.added = append(s.added, subs...)
	if s.addBatchFn != nil {
		return s.addBatchFn(subs)
	}
	out := make([]downloader.Result[string], len(subs))
	for i := range subs {
		out[i].Value = fmt.Sprintf("bgid%d", i+1)
	}
	return out, nil
}

func (s *stubDownloader) Status(ctx context.Context, gids []string) ([]downloader.Result[data.StatusView], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	out := make([]downloader.Result[data.StatusView], len(gids))
	for i, gid := range gids {
		st, ok := s.states[gid]
		if !ok {
			err := fmt.Errorf("GID %s is not found", gid)
			out[i] = downloader.Result[data.StatusView]{
				Value: data.StatusView{GID: gid, State: data.StateUnknown, Err: err.Error()},
				Err:   err,
			}
			continue
		}
		out[i].Value = data.StatusView{GID: gid, State: st}
	}
	return out, nil
}

func (s *stubDownloader) Pause(ctx context.Context, gid string) error {
	s.paused = append(s.paused, gid)
	return nil
}

func (s *stubDownloader) Resume(ctx context.Context, gid string) error {
	s.resumed = append(s.resumed, gid)
	return nil
}

func (s *stubDownloader) Cancel(ctx context.Context, gid string) error {
	s.cancelled = append(s.cancelled, gid)
	return nil
}

func (s *stubDownloader) Purge(ctx context.Context, gid string) error {
	s.purged = append(s.purged, gid)
	return s.purgeErr
}

func (s *stubDownloader) Ping(ctx context.Context) error { return nil }

// failingRepo fails every Create.
type failingRepo struct {
	repo.DownloadRefRepo
}

func (failingRepo) Create(ctx context.Context, ref *data.DownloadRef) (*data.DownloadRef, error) {
	return nil, errors.New("disk full")
}

// stubMetadata serves fixed payloads to the resolver.
type stubMetadata struct {
	vods   map[int]*xtream.VodInfo
	series map[int]*xtream.SeriesInfo
}

func (m stubMetadata) VodInfo(ctx context.Context, id int) (*xtream.VodInfo, error) {
	if v, ok := m.vods[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("vod %d: %w", id, data.ErrNotFound)
}

func (m stubMetadata) SeriesInfo(ctx context.Context, id int) (*xtream.SeriesInfo, error) {
	if v, ok := m.series[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("series %d: %w", id, data.ErrNotFound)
}

var testCreds = xtream.Credentials{BaseURL: "http://upstream.example", Username: "u", Password: "p"}

func fooInfo(t *testing.T) *xtream.VodInfo {
	t.Helper()
	info, err := xtream.ParseVodInfo(42, []byte(`{"movie_data": {"stream_id": 42, "name": "Foo", "container_extension": "mp4"}}`))
	if err != nil {
		t.Fatalf("ParseVodInfo: %v", err)
	}
	return info
}

const showBody = `{"info": {"name": "Show"}, "episodes": {"1": [
	{"id": "701", "episode_num": 1, "title": "One", "container_extension": "mkv", "season": 1},
	{"id": "702", "episode_num": 2, "title": "Two", "container_extension": "mkv", "season": 1},
	{"id": "703", "episode_num": 3, "title": "Three", "container_extension": "mkv", "season": 1}
]}}`

func showInfo(t *testing.T) *xtream.SeriesInfo {
	t.Helper()
	info, err := xtream.ParseSeriesInfo(7, []byte(showBody))
	if err != nil {
		t.Fatalf("ParseSeriesInfo: %v", err)
	}
	return info
}

func episodes(t *testing.T) []catalog.Item {
	t.Helper()
	s := showInfo(t)
	var items []catalog.Item
	for n := 1; n <= 3; n++ {
		ep, ok := s.Episode(1, n)
		if !ok {
			t.Fatalf("episode %d missing", n)
		}
		items = append(items, catalog.Episode{Series: s, Episode: ep})
	}
	return items
}

func newTestService(t *testing.T, r repo.DownloadRefRepo, dlr *stubDownloader) *download {
	t.Helper()
	md := stubMetadata{vods: map[int]*xtream.VodInfo{42: fooInfo(t)}, series: map[int]*xtream.SeriesInfo{7: showInfo(t)}}
	return NewDownload(r, dlr, catalog.NewResolver(md), Config{Credentials: testCreds}).(*download)
}
