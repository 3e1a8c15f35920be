package data

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// MediaKind identifies which catalog collection a download belongs to.
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// ParseMediaKind accepts the canonical names plus the upstream "vod" alias.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "vod":
		return KindMovie, nil
	case "series", "show", "shows":
		return KindSeries, nil
	default:
		return "", fmt.Errorf("%w: unknown media kind %q", ErrInvalidArgument, s)
	}
}

// DownloadRef links a catalog item (and optional episode) to a daemon GID.
// Refs are immutable once created; only the timestamps move.
type DownloadRef struct {
	ID             int64     `json:"id"`
	GID            string    `json:"gid"`
	MediaKind      MediaKind `json:"mediaKind"`
	MediaID        int       `json:"mediaId"`
	DownloadableID int       `json:"downloadableId"`
	Episode        *int      `json:"episode,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type DownloadRefs []*DownloadRef

// RefFilter selects refs by natural key. A nil Episode matches any episode.
type RefFilter struct {
	MediaKind      MediaKind
	MediaID        int
	DownloadableID int
	Episode        *int
}

// Matches reports whether r satisfies the filter.
func (f RefFilter) Matches(r *DownloadRef) bool {
	if r == nil || r.MediaKind != f.MediaKind || r.MediaID != f.MediaID || r.DownloadableID != f.DownloadableID {
		return false
	}
	if f.Episode == nil {
		return true
	}
	return r.Episode != nil && *r.Episode == *f.Episode
}

// Clone returns a deep copy of the ref.
func (r *DownloadRef) Clone() *DownloadRef {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Episode != nil {
		ep := *r.Episode
		cp.Episode = &ep
	}
	return &cp
}

// Clone returns a deep copy of the slice.
func (rs DownloadRefs) Clone() DownloadRefs {
	out := make(DownloadRefs, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Clone())
	}
	return out
}

// GIDs returns the daemon identifiers in slice order.
func (rs DownloadRefs) GIDs() []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.GID)
	}
	return out
}

func (r *DownloadRef) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

func (rs DownloadRefs) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(rs) }

// IntPtr is a small helper for optional episode numbers.
func IntPtr(v int) *int { return &v }
