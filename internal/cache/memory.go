package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/smartshelf/catalog-service/internal/catalog"
)

// maxEntryAge bounds how long any entry may live in the LRU regardless of its
// own TTL; per-entry deadlines are enforced on read.
const maxEntryAge = 24 * time.Hour

var _ catalog.Cache = (*Memory)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process catalog.Cache used when no Redis URL is configured
// and in tests. Capacity-bounded by an expirable LRU.
type Memory struct {
	lru *expirable.LRU[string, memoryEntry]
}

// NewMemory creates a Memory cache holding at most size entries.
func NewMemory(size int) *Memory {
	return &Memory{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxEntryAge),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.Add(key, memoryEntry{
		value:     slices.Clone(value),
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}
