package aria2dl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type envelope struct {
	Method string            `json:"method"`
	ID     string            `json:"id"`
	Params []json.RawMessage `json:"params"`
}

func respond(body string) (*http.Response, error) {
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
}

func newTestAdapter(t *testing.T, secret string, rt roundTripFunc) *Adapter {
	t.Helper()
	c, err := aria2.NewClient(aria2.Options{
		URL:        "http://example.com/jsonrpc",
		Secret:     secret,
		RetryDelay: time.Millisecond,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewAdapter(c)
}

func TestAdapterAdd(t *testing.T) {
	a := newTestAdapter(t, "secret", func(r *http.Request) (*http.Response, error) {
		var env envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if env.Method != "aria2.addUri" {
			t.Fatalf("method = %s", env.Method)
		}
		if len(env.Params) != 3 {
			t.Fatalf("expected token, uris, options; got %d params", len(env.Params))
		}
		var opts map[string]string
		if err := json.Unmarshal(env.Params[2], &opts); err != nil {
			t.Fatalf("options: %v", err)
		}
		if opts["out"] != "movies/Foo/Foo.mp4" || opts["continue"] != "true" || opts["max-tries"] != "10" {
			t.Fatalf("unexpected options: %#v", opts)
		}
		return respond(`{"jsonrpc":"2.0","id":"x","result":"gid123"}`)
	})
	gid, err := a.Add(context.Background(), downloader.Submission{
		URIs:    []string{"http://example.com/movie/u/p/42.mp4"},
		Options: map[string]any{"out": "movies/Foo/Foo.mp4", "continue": true, "max-tries": 10},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gid != "gid123" {
		t.Fatalf("gid = %s", gid)
	}
}

func TestAdapterAddRequiresURI(t *testing.T) {
	a := newTestAdapter(t, "", func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	if _, err := a.Add(context.Background(), downloader.Submission{}); !errors.Is(err, data.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAdapterAddBatchPartialFailure(t *testing.T) {
	a := newTestAdapter(t, "", func(r *http.Request) (*http.Response, error) {
		var envs []envelope
		if err := json.NewDecoder(r.Body).Decode(&envs); err != nil {
			t.Fatalf("decode batch: %v", err)
		}
		if len(envs) != 3 {
			t.Fatalf("batch size = %d", len(envs))
		}
		return respond(`[{"result":"g1"},{"error":{"code":1,"message":"No URI to download."}},{"result":"g3"}]`)
	})
	subs := []downloader.Submission{{URIs: []string{"a"}}, {URIs: []string{"b"}}, {URIs: []string{"c"}}}
	res, err := a.AddBatch(context.Background(), subs)
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if res[0].Value != "g1" || res[2].Value != "g3" {
		t.Fatalf("unexpected gids: %+v", res)
	}
	if res[1].OK() || !strings.Contains(res[1].Err.Error(), "No URI") {
		t.Fatalf("expected slot 1 error, got %+v", res[1])
	}
}

func TestAdapterStatus(t *testing.T) {
	a := newTestAdapter(t, "tok", func(r *http.Request) (*http.Response, error) {
		var envs []envelope
		_ = json.NewDecoder(r.Body).Decode(&envs)
		if len(envs) != 2 {
			t.Fatalf("expected one batch with 2 calls, got %d", len(envs))
		}
		for _, e := range envs {
			if e.Method != "aria2.tellStatus" {
				t.Fatalf("method = %s", e.Method)
			}
		}
		return respond(`[
			{"result":{"gid":"gidA","status":"active","totalLength":"1000","completedLength":"250","downloadSpeed":"50","errorCode":"0","dir":"/downloads","files":[{"path":"/downloads/movies/Foo/Foo.mp4","length":"1000","completedLength":"250","selected":"true"}]}},
			{"error":{"code":1,"message":"GID gidB is not found"}}
		]`)
	})
	res, err := a.Status(context.Background(), []string{"gidA", "gidB"})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("len = %d", len(res))
	}
	v := res[0].Value
	if v.GID != "gidA" || v.State != data.StateActive || v.TotalBytes != 1000 || v.Completed != 250 || v.Speed != 50 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.ErrorCode != "" {
		t.Fatalf("errorCode 0 should be dropped, got %q", v.ErrorCode)
	}
	if len(v.Files) != 1 || !v.Files[0].Selected {
		t.Fatalf("unexpected files: %+v", v.Files)
	}
	if res[1].OK() || res[1].Value.GID != "gidB" || res[1].Value.Err == "" {
		t.Fatalf("expected error marker for gidB, got %+v", res[1])
	}
	if res[1].Value.State != data.StateUnknown {
		t.Fatalf("failed slot state = %s", res[1].Value.State)
	}
}

func TestAdapterControlCalls(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*Adapter, context.Context, string) error
		method string
	}{
		{"pause", (*Adapter).Pause, "aria2.pause"},
		{"resume", (*Adapter).Resume, "aria2.unpause"},
		{"cancel", (*Adapter).Cancel, "aria2.remove"},
		{"purge", (*Adapter).Purge, "aria2.removeDownloadResult"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAdapter(t, "", func(r *http.Request) (*http.Response, error) {
				var env envelope
				_ = json.NewDecoder(r.Body).Decode(&env)
				if env.Method != tc.method {
					t.Fatalf("method = %s, want %s", env.Method, tc.method)
				}
				var gid string
				_ = json.Unmarshal(env.Params[0], &gid)
				if gid != "g1" {
					t.Fatalf("gid param = %s", gid)
				}
				return respond(`{"result":"OK"}`)
			})
			if err := tc.call(a, context.Background(), "g1"); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
		})
	}
}

func TestAdapterNotFound(t *testing.T) {
	a := newTestAdapter(t, "", func(r *http.Request) (*http.Response, error) {
		return respond(`{"error":{"code":1,"message":"GID g1 is not found"}}`)
	})
	if err := a.Pause(context.Background(), "g1"); !errors.Is(err, downloader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := a.Purge(context.Background(), "g1"); err != nil {
		t.Fatalf("purge of unknown gid should be idempotent, got %v", err)
	}
	if err := a.Cancel(context.Background(), ""); !errors.Is(err, downloader.ErrNotFound) {
		t.Fatalf("empty gid: expected ErrNotFound, got %v", err)
	}
}

func TestAdapterPing(t *testing.T) {
	a := newTestAdapter(t, "tok", func(r *http.Request) (*http.Response, error) {
		var env envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		if env.Method != "aria2.getVersion" {
			t.Fatalf("method = %s", env.Method)
		}
		return respond(`{"result":{"version":"1.37.0"}}`)
	})
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestEventTypeMapping(t *testing.T) {
	if got := eventType(aria2.Notification{Method: "aria2.onDownloadError"}); got != downloader.EventFailed {
		t.Fatalf("got %s", got)
	}
	if got := eventType(aria2.Notification{Method: "aria2.onDownloadComplete"}); got != downloader.EventComplete {
		t.Fatalf("got %s", got)
	}
}

func TestStringOptions(t *testing.T) {
	got := stringOptions(map[string]any{"continue": true, "retry-wait": 5, "out": "a/b.mkv", "skip": nil, "split": int64(4)})
	want := map[string]string{"continue": "true", "retry-wait": "5", "out": "a/b.mkv", "split": "4"}
	if len(got) != len(want) {
		t.Fatalf("got %#v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: got %q want %q", k, got[k], v)
		}
	}
}
