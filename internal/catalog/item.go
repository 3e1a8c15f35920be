// Package catalog turns upstream metadata into downloadable items: their
// identity, on-disk destination and content URL.
package catalog

import (
	"fmt"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/xtream"
)

// Item is a downloadable catalog entry: a Movie or an Episode. The set is
// closed; switches over it must handle both.
type Item interface {
	isItem()
	Kind() data.MediaKind
}

// Movie is a single-file item.
type Movie struct {
	Info *xtream.VodInfo
}

// Episode is one episode of a series. A nil Episode field is invalid.
type Episode struct {
	Series  *xtream.SeriesInfo
	Episode *xtream.Episode
}

func (Movie) isItem()   {}
func (Episode) isItem() {}

func (Movie) Kind() data.MediaKind   { return data.KindMovie }
func (Episode) Kind() data.MediaKind { return data.KindSeries }

// Validate checks the preconditions shared by every builder.
func Validate(item Item) error {
	switch it := item.(type) {
	case Movie:
		if it.Info == nil {
			return fmt.Errorf("%w: movie without metadata", data.ErrInvalidArgument)
		}
	case Episode:
		if it.Series == nil {
			return fmt.Errorf("%w: episode without series metadata", data.ErrInvalidArgument)
		}
		if it.Episode == nil {
			return fmt.Errorf("%w: episode is required for series items", data.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unsupported item %T", data.ErrInvalidArgument, item)
	}
	return nil
}

// Identity is the natural key of an item as stored on download refs.
type Identity struct {
	Kind           data.MediaKind
	MediaID        int
	DownloadableID int
	// Episode is the episode number for series items.
	Episode *int
	// Season is informational; it is not part of the ref filter.
	Season int
}

// Filter returns the ref filter for this identity.
func (id Identity) Filter() data.RefFilter {
	return data.RefFilter{MediaKind: id.Kind, MediaID: id.MediaID, DownloadableID: id.DownloadableID, Episode: id.Episode}
}

// IdentityOf derives the natural key. For episodes the downloadable id is
// the numeric episode id.
func IdentityOf(item Item) (Identity, error) {
	if err := Validate(item); err != nil {
		return Identity{}, err
	}
	switch it := item.(type) {
	case Movie:
		return Identity{Kind: data.KindMovie, MediaID: it.Info.VodID, DownloadableID: it.Info.VodID}, nil
	case Episode:
		epID, err := it.Episode.NumericID()
		if err != nil {
			return Identity{}, fmt.Errorf("%w: episode id %q is not numeric", data.ErrInvalidArgument, it.Episode.ID)
		}
		return Identity{
			Kind:           data.KindSeries,
			MediaID:        it.Series.SeriesID,
			DownloadableID: epID,
			Episode:        data.IntPtr(it.Episode.EpisodeNum.Int()),
			Season:         it.Episode.Season.Int(),
		}, nil
	}
	return Identity{}, fmt.Errorf("%w: unsupported item %T", data.ErrInvalidArgument, item)
}
