package catalog

import (
	"context"
	"fmt"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/xtream"
)

// Metadata is the read side of the (cached) upstream client.
type Metadata interface {
	VodInfo(ctx context.Context, vodID int) (*xtream.VodInfo, error)
	SeriesInfo(ctx context.Context, seriesID int) (*xtream.SeriesInfo, error)
}

// Resolver turns ids into Items through the metadata client.
type Resolver struct {
	md Metadata
}

func NewResolver(md Metadata) *Resolver { return &Resolver{md: md} }

func (r *Resolver) Movie(ctx context.Context, vodID int) (Item, error) {
	info, err := r.md.VodInfo(ctx, vodID)
	if err != nil {
		return nil, err
	}
	return Movie{Info: info}, nil
}

// Episode resolves season/episode numbers of a series.
func (r *Resolver) Episode(ctx context.Context, seriesID, season, episode int) (Item, error) {
	info, err := r.md.SeriesInfo(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	ep, ok := info.Episode(season, episode)
	if !ok {
		return nil, fmt.Errorf("%w: series %d has no episode S%02dE%02d", data.ErrNotFound, seriesID, season, episode)
	}
	return Episode{Series: info, Episode: ep}, nil
}

// Episodes resolves several episodes of one series with a single metadata
// lookup. Entries resolve independently: errs[i] is set, and items[i] nil,
// when refs[i] names no episode of the series. The returned error is only
// for the series lookup itself.
func (r *Resolver) Episodes(ctx context.Context, seriesID int, refs []EpisodeRef) (items []Item, errs []error, err error) {
	info, err := r.md.SeriesInfo(ctx, seriesID)
	if err != nil {
		return nil, nil, err
	}
	items = make([]Item, len(refs))
	errs = make([]error, len(refs))
	for i, ref := range refs {
		ep, ok := info.Episode(ref.Season, ref.Episode)
		if !ok {
			errs[i] = fmt.Errorf("%w: series %d has no episode S%02dE%02d", data.ErrNotFound, seriesID, ref.Season, ref.Episode)
			continue
		}
		items[i] = Episode{Series: info, Episode: ep}
	}
	return items, errs, nil
}

// FromRef re-resolves the item a stored ref points at.
func (r *Resolver) FromRef(ctx context.Context, ref *data.DownloadRef) (Item, error) {
	switch ref.MediaKind {
	case data.KindMovie:
		return r.Movie(ctx, ref.MediaID)
	case data.KindSeries:
		info, err := r.md.SeriesInfo(ctx, ref.MediaID)
		if err != nil {
			return nil, err
		}
		ep, ok := info.EpisodeByID(fmt.Sprint(ref.DownloadableID))
		if !ok {
			return nil, fmt.Errorf("%w: series %d has no episode id %d", data.ErrNotFound, ref.MediaID, ref.DownloadableID)
		}
		return Episode{Series: info, Episode: ep}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported media kind %q", data.ErrInvalidArgument, ref.MediaKind)
	}
}

// EpisodeRef addresses an episode by season and episode number.
type EpisodeRef struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}
