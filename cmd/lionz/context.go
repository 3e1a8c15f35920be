package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/cache"
	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/config"
	aria2dl "github.com/lionzhd/lionz/internal/downloader/aria2"
	"github.com/lionzhd/lionz/internal/logging"
	"github.com/lionzhd/lionz/internal/repo"
	"github.com/lionzhd/lionz/internal/service"
	"github.com/lionzhd/lionz/internal/sqldb"
	"github.com/lionzhd/lionz/internal/xtream"
)

// commandContext lazily loads configuration and wires the application once
// per process.
type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *app
	appErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureApp(ctx context.Context) (*app, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = newApp(ctx, cfg)
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// app holds every wired component.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *sqldb.DB
	refs     repo.DownloadRefRepo
	store    cache.Store
	metadata *xtream.CachedClient
	resolver *catalog.Resolver
	rpc      *aria2.Client
	daemon   *aria2dl.Adapter
	svc      service.Download

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	level, _ := config.ParseLevel(cfg.LogLevel)
	log, logCloser := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	slog.SetDefault(log)
	a := &app{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	dialect, _ := cfg.Dialect()
	db, err := sqldb.Open(ctx, dialect, cfg.DSN())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db)

	a.refs, err = repo.NewSQLDownloadRefRepo(ctx, db)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("download refs: %w", err)
	}

	switch cfg.CacheBackend {
	case config.CacheSQL:
		a.store, err = cache.NewSQLStore(ctx, db)
	default:
		a.store, err = cache.NewMemoryStore(cfg.CacheSize)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metadata cache: %w", err)
	}

	creds := xtream.Credentials{BaseURL: cfg.XtreamBaseURL, Username: cfg.XtreamUsername, Password: cfg.XtreamPassword}
	upstream, err := xtream.NewClient(creds, cfg.XtreamTimeout, nil)
	if err != nil {
		a.Close()
		return nil, err
	}
	upstream.SetLogger(log)
	a.metadata = xtream.NewCachedClient(upstream, a.store)
	a.metadata.SetLogger(log)
	a.resolver = catalog.NewResolver(a.metadata)

	a.rpc, err = aria2.NewClient(aria2.Options{
		URL:            cfg.Aria2RPCURL,
		Secret:         cfg.Aria2Secret,
		Timeout:        cfg.Aria2Timeout,
		ConnectTimeout: cfg.Aria2ConnectTimeout,
		Retries:        cfg.Aria2Retries,
		RetryDelay:     cfg.Aria2RetryDelay,
		Logger:         log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.daemon = aria2dl.NewAdapter(a.rpc)
	a.daemon.SetLogger(log)

	policy, _ := cfg.Policy()
	a.svc = service.NewDownload(a.refs, a.daemon, a.resolver, service.Config{
		Credentials: creds,
		Policy:      policy,
		Logger:      log,
	})
	return a, nil
}

// Close releases the database and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
