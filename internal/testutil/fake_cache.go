package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeCache is an in-memory cache.Cache with injectable unavailability.
// When Unavailable is set, every Get misses and every write is dropped,
// modeling a down backend that must degrade to forced fetches.
type FakeCache struct {
	mu          sync.Mutex
	entries     map[string]fakeEntry
	Unavailable bool

	Gets, Sets int // operation counters, guarded by mu
}

type fakeEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewFakeCache returns an empty FakeCache.
func NewFakeCache() *FakeCache {
	return &FakeCache{entries: make(map[string]fakeEntry)}
}

// Get returns the stored value if present, unexpired, and the cache is available.
func (f *FakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Gets++
	if f.Unavailable {
		return nil, false
	}
	e, ok := f.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

// Set stores a value unless the cache is unavailable.
func (f *FakeCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sets++
	if f.Unavailable {
		return
	}
	f.entries[key] = fakeEntry{data: val, expiresAt: time.Now().Add(ttl)}
}

// Delete removes a key.
func (f *FakeCache) Delete(_ context.Context, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

// Purge removes all keys.
func (f *FakeCache) Purge(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.entries)
}

// Len reports the number of stored entries.
func (f *FakeCache) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
