package fp

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/lionzhd/lionz/internal/data"
)

// segment maps a media kind onto the path segment used in the identity input.
func segment(kind data.MediaKind) (string, error) {
	switch kind {
	case data.KindMovie:
		return "movie", nil
	case data.KindSeries:
		return "series", nil
	default:
		return "", fmt.Errorf("%w: unsupported media kind %q", data.ErrInvalidArgument, kind)
	}
}

// Fingerprint computes the local dedup identity for a download request:
// a 16-char hex xxhash64 of "{segment}/{id}". For series the id is the
// episode id. It is a correlation key only, never a substitute for the GID.
func Fingerprint(kind data.MediaKind, id int) (string, error) {
	seg, err := segment(kind)
	if err != nil {
		return "", err
	}
	sum := xxhash.Sum64String(seg + "/" + strconv.Itoa(id))
	return fmt.Sprintf("%016x", sum), nil
}
