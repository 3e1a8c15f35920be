// Package service implements download orchestration: launching catalog
// items on the daemon with dedup, aggregating live status for persisted
// refs, and user control of existing downloads.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloadcfg"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/repo"
	"github.com/lionzhd/lionz/internal/xtream"
)

// Download is the public surface used by the HTTP API and the CLI.
type Download interface {
	// Launch submits item unless an equivalent download is already active.
	Launch(ctx context.Context, item catalog.Item, overrides map[string]any) (*LaunchResult, error)
	// LaunchBatch submits items in one daemon round trip. Entries fail
	// independently; the returned slice is ordered like items.
	LaunchBatch(ctx context.Context, items []catalog.Item, overrides map[string]any) ([]LaunchOutcome, error)
	// StatusFor looks up gids in one batched call, in order.
	StatusFor(ctx context.Context, gids []string) ([]data.StatusView, error)
	// Downloads pages through persisted refs merged with live status.
	Downloads(ctx context.Context, limit, offset int) ([]data.RefWithStatus, error)
	Control(ctx context.Context, refID int64, action data.Action) (*ControlResult, error)
	Delete(ctx context.Context, refID int64) error
}

// Config carries the launch-time settings of the service.
type Config struct {
	Credentials xtream.Credentials
	Policy      downloadcfg.CollisionPolicy
	Logger      *slog.Logger
}

type download struct {
	repo     repo.DownloadRefRepo
	dlr      downloader.Downloader
	resolver *catalog.Resolver
	cfg      Config
	launches singleflight.Group
	log      *slog.Logger
}

// NewDownload wires the service. resolver may be nil when retry is not
// needed (it is only used to re-resolve refs).
func NewDownload(r repo.DownloadRefRepo, dlr downloader.Downloader, resolver *catalog.Resolver, cfg Config) Download {
	if cfg.Policy == "" {
		cfg.Policy = downloadcfg.CollisionOverwrite
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &download{repo: r, dlr: dlr, resolver: resolver, cfg: cfg, log: log}
}
