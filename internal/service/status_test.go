package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/repo"
)

func TestStatusForPartial(t *testing.T) {
	dlr := &stubDownloader{states: map[string]data.LifecycleState{"gidA": data.StateActive}}
	svc := newTestService(t, repo.NewInMemoryDownloadRefRepo(), dlr)

	views, err := svc.StatusFor(context.Background(), []string{"gidA", "gidB"})
	if err != nil {
		t.Fatalf("StatusFor: %v", err)
	}
	if dlr.statusCalls != 1 {
		t.Fatalf("expected one batched call, got %d", dlr.statusCalls)
	}
	if len(views) != 2 || views[0].GID != "gidA" || views[0].State != data.StateActive || views[0].Failed() {
		t.Fatalf("slot 0 = %+v", views[0])
	}
	if views[1].GID != "gidB" || !views[1].Failed() || views[1].State != data.StateUnknown {
		t.Fatalf("slot 1 = %+v", views[1])
	}
}

func TestStatusForEmpty(t *testing.T) {
	dlr := &stubDownloader{}
	svc := newTestService(t, repo.NewInMemoryDownloadRefRepo(), dlr)
	views, err := svc.StatusFor(context.Background(), nil)
	if err != nil || len(views) != 0 {
		t.Fatalf("got %v, %v", views, err)
	}
	if dlr.statusCalls != 0 {
		t.Fatalf("no call expected for empty input")
	}
}

func TestStatusForWholeFailure(t *testing.T) {
	dlr := &stubDownloader{statusErr: aria2.ErrAuthRejected}
	svc := newTestService(t, repo.NewInMemoryDownloadRefRepo(), dlr)
	if _, err := svc.StatusFor(context.Background(), []string{"a"}); !errors.Is(err, aria2.ErrAuthRejected) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestDownloadsJoin(t *testing.T) {
	ctx := context.Background()
	r := repo.NewInMemoryDownloadRefRepo()
	for _, gid := range []string{"g1", "g2", "g3"} {
		if _, err := r.Create(ctx, &data.DownloadRef{GID: gid, MediaKind: data.KindMovie, MediaID: 1, DownloadableID: 1}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	dlr := &stubDownloader{states: map[string]data.LifecycleState{"g1": data.StateComplete, "g3": data.StatePaused}}
	svc := newTestService(t, r, dlr)

	rows, err := svc.Downloads(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Downloads: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := map[string]data.LifecycleState{"g1": data.StateComplete, "g2": data.StateUnknown, "g3": data.StatePaused}
	for _, row := range rows {
		if row.Status.GID != row.GID || row.Status.State != want[row.GID] {
			t.Fatalf("row %s: %+v", row.GID, row.Status)
		}
	}
	if rows[0].GID != "g3" {
		t.Fatalf("expected newest first, got %s", rows[0].GID)
	}
	if dlr.statusCalls != 1 {
		t.Fatalf("expected one status batch, got %d", dlr.statusCalls)
	}

	page, err := svc.Downloads(ctx, 1, 1)
	if err != nil || len(page) != 1 || page[0].GID != "g2" {
		t.Fatalf("page = %+v, %v", page, err)
	}
}

func TestDownloadsDaemonDown(t *testing.T) {
	ctx := context.Background()
	r := repo.NewInMemoryDownloadRefRepo()
	_, _ = r.Create(ctx, &data.DownloadRef{GID: "g1", MediaKind: data.KindMovie, MediaID: 1, DownloadableID: 1})
	dlr := &stubDownloader{statusErr: &aria2.TransportError{Attempts: 4, Err: errors.New("connection refused")}}
	svc := newTestService(t, r, dlr)

	rows, err := svc.Downloads(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Downloads: %v", err)
	}
	if len(rows) != 1 || rows[0].Status.State != data.StateUnknown || rows[0].Status.Err == "" {
		t.Fatalf("rows = %+v", rows)
	}
}
