package testutil

import (
	"context"
	"sync"

	pantry "github.com/telliott/pantry/internal"
)

// FakeSearchStore is an in-memory storage.SearchStore.
type FakeSearchStore struct {
	mu      sync.Mutex
	records []pantry.SearchRecord

	InsertErr error // returned by InsertSearches when non-nil
	QueryErr  error // returned by QuerySearches when non-nil
}

// InsertSearches appends records, or fails with InsertErr.
func (f *FakeSearchStore) InsertSearches(_ context.Context, records []pantry.SearchRecord) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	f.records = append(f.records, records...)
	f.mu.Unlock()
	return nil
}

// QuerySearches returns stored records newest-first, honoring only the Limit
// field of the filter.
func (f *FakeSearchStore) QuerySearches(_ context.Context, filter pantry.SearchFilter) ([]pantry.SearchRecord, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pantry.SearchRecord, 0, len(f.records))
	for i := len(f.records) - 1; i >= 0; i-- {
		out = append(out, f.records[i])
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// CountSearches returns the number of stored records.
func (f *FakeSearchStore) CountSearches(_ context.Context, _ pantry.SearchFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

// Records returns a copy of everything stored so far.
func (f *FakeSearchStore) Records() []pantry.SearchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pantry.SearchRecord, len(f.records))
	copy(out, f.records)
	return out
}

// Ping always reports healthy.
func (f *FakeSearchStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (f *FakeSearchStore) Close() error { return nil }
