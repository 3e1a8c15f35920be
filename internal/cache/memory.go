package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is a bounded in-process Store. Least recently used entries are
// evicted once size is reached; expired entries are dropped on read.
type MemoryStore struct {
	lru *lru.Cache[string, memEntry]
	now clock
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, memEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{lru: c, now: time.Now}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.lru.Add(key, memEntry{value: v, expires: expiry(m.now(), ttl)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len reports the number of entries, expired ones included.
func (m *MemoryStore) Len() int { return m.lru.Len() }
