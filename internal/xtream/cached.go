package xtream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/lionzhd/lionz/internal/cache"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Cache lifetimes per payload kind.
const (
	VodInfoTTL    = 30 * 24 * time.Hour
	SeriesInfoTTL = 24 * time.Hour
	ListingTTL    = 12 * time.Hour
)

// Cache keys. Listings live in their own namespace so per-item invalidation
// never touches them.
const (
	keyVodListing    = "listing_vod_streams"
	keySeriesListing = "listing_series"
)

// InfoKey is the per-item cache key, "{kind}_info_{id}".
func InfoKey(kind data.MediaKind, id int) (string, error) {
	switch kind {
	case data.KindMovie:
		return fmt.Sprintf("vod_info_%d", id), nil
	case data.KindSeries:
		return fmt.Sprintf("series_info_%d", id), nil
	default:
		return "", fmt.Errorf("%w: unsupported media kind %q", data.ErrInvalidArgument, kind)
	}
}

// Fetcher is the upstream surface wrapped by CachedClient.
type Fetcher interface {
	Fetch(ctx context.Context, action Action, params url.Values) ([]byte, error)
	Credentials() Credentials
}

// CachedClient is a read-through cache over the upstream API. A body is
// stored only after it parses, and is parsed again on every read.
type CachedClient struct {
	up    Fetcher
	store cache.Store
	sf    singleflight.Group
	log   *slog.Logger
}

func NewCachedClient(up Fetcher, store cache.Store) *CachedClient {
	return &CachedClient{up: up, store: store, log: slog.Default()}
}

// SetLogger allows wiring a shared application logger into the client.
func (c *CachedClient) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

func (c *CachedClient) Credentials() Credentials { return c.up.Credentials() }

// readThrough returns the value parsed from the cached body for key, or
// fetches, parses and then stores it. Bodies that fail to parse are never
// stored. Concurrent misses for one key share a single upstream call that is
// detached from any one caller's cancellation.
func readThrough[T any](ctx context.Context, c *CachedClient, kind, key string, ttl time.Duration, action Action, params url.Values, parse func([]byte) (T, error)) (T, error) {
	var zero T
	if b, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.Warn("metadata cache read failed", "key", key, "err", err)
	} else if ok {
		v, err := parse(b)
		if err == nil {
			metrics.MetadataCacheRequests.WithLabelValues(kind, "hit").Inc()
			return v, nil
		}
		c.log.Warn("dropping unparseable metadata cache entry", "key", key, "err", err)
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("metadata cache delete failed", "key", key, "err", err)
		}
	}
	metrics.MetadataCacheRequests.WithLabelValues(kind, "miss").Inc()

	ch := c.sf.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		b, err := c.up.Fetch(fctx, action, params)
		if err != nil {
			return nil, err
		}
		v, err := parse(b)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(fctx, key, b, ttl); err != nil {
			c.log.Warn("metadata cache write failed", "key", key, "err", err)
		}
		return v, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// VodInfo returns movie metadata, cached for VodInfoTTL.
func (c *CachedClient) VodInfo(ctx context.Context, vodID int) (*VodInfo, error) {
	key, _ := InfoKey(data.KindMovie, vodID)
	return readThrough(ctx, c, "vod", key, VodInfoTTL, ActionGetVodInfo, idParam("vod_id", vodID), func(b []byte) (*VodInfo, error) {
		return ParseVodInfo(vodID, b)
	})
}

// SeriesInfo returns series metadata, cached for SeriesInfoTTL.
func (c *CachedClient) SeriesInfo(ctx context.Context, seriesID int) (*SeriesInfo, error) {
	key, _ := InfoKey(data.KindSeries, seriesID)
	return readThrough(ctx, c, "series", key, SeriesInfoTTL, ActionGetSeriesInfo, idParam("series_id", seriesID), func(b []byte) (*SeriesInfo, error) {
		return ParseSeriesInfo(seriesID, b)
	})
}

func (c *CachedClient) VodStreams(ctx context.Context) ([]VodStream, error) {
	return readThrough(ctx, c, "vod_listing", keyVodListing, ListingTTL, ActionGetVodStreams, nil, parseList[VodStream])
}

func (c *CachedClient) Series(ctx context.Context) ([]SeriesListing, error) {
	return readThrough(ctx, c, "series_listing", keySeriesListing, ListingTTL, ActionGetSeries, nil, parseList[SeriesListing])
}

// Invalidate evicts exactly one (kind, id) entry without any network call.
func (c *CachedClient) Invalidate(ctx context.Context, kind data.MediaKind, id int) error {
	key, err := InfoKey(kind, id)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	c.log.Info("metadata cache invalidated", "key", key)
	return nil
}
