package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
)

func TestParseEpisodeRefs(t *testing.T) {
	refs, err := parseEpisodeRefs([]string{"1:2", "3:10"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []catalog.EpisodeRef{{Season: 1, Episode: 2}, {Season: 3, Episode: 10}}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs[%d] = %+v", i, refs[i])
		}
	}
	for _, bad := range []string{"1", "a:2", "1:b", ""} {
		if _, err := parseEpisodeRefs([]string{bad}); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
}

func TestParseOptions(t *testing.T) {
	got, err := parseOptions([]string{"max-tries=3", "dir=/data=x"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["max-tries"] != "3" || got["dir"] != "/data=x" {
		t.Fatalf("got %#v", got)
	}
	if _, err := parseOptions([]string{"novalue"}); err == nil {
		t.Fatalf("expected error")
	}
	if got, _ := parseOptions(nil); got != nil {
		t.Fatalf("expected nil map")
	}
}

func TestParseInts(t *testing.T) {
	if _, err := parseInts([]string{"0"}); err == nil {
		t.Fatalf("zero id should fail")
	}
	ids, err := parseInts([]string{"42"})
	if err != nil || ids[0] != 42 {
		t.Fatalf("got %v %v", ids, err)
	}
}

func TestPrintDownloads(t *testing.T) {
	var buf bytes.Buffer
	printDownloads(&buf, nil)
	if strings.TrimSpace(buf.String()) != "No downloads" {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	rows := []data.RefWithStatus{{
		DownloadRef: &data.DownloadRef{ID: 3, GID: "gidA", MediaKind: data.KindSeries, MediaID: 7, DownloadableID: 701, Episode: data.IntPtr(2), CreatedAt: time.Now()},
		Status:      data.StatusView{GID: "gidA", State: data.StateActive, TotalBytes: 2000000, Completed: 1000000},
	}}
	printDownloads(&buf, rows)
	out := buf.String()
	for _, want := range []string{"gidA", "series", "active", "2.0 MB", "50%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestStateLabel(t *testing.T) {
	if got := stateLabel(data.StatusView{State: data.StateUnknown, Err: "GID x is not found"}); !strings.Contains(got, "not found") {
		t.Fatalf("got %q", got)
	}
	if got := speedLabel(data.StatusView{}); got != "-" {
		t.Fatalf("got %q", got)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, path := range [][]string{
		{"serve"}, {"launch", "movie"}, {"launch", "episodes"}, {"status"},
		{"control"}, {"delete"}, {"cache", "invalidate"}, {"cache", "purge"},
		{"catalog", "movies"}, {"catalog", "series"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not found: %v", path, err)
		}
	}
}
