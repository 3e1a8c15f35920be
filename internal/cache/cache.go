// Package cache provides the get/put-with-ttl/delete store used by the
// metadata client. Entries are always written whole; there is no patching.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store.
type Store interface {
	// Get returns the value and true on a live hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key. A ttl <= 0 never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// clock is swapped in tests.
type clock func() time.Time

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
