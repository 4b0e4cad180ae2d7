// Package storage defines persistence interfaces for the pantry gateway.
package storage

import (
	"context"

	pantry "github.com/telliott/pantry/internal"
)

// SearchStore manages the append-only search timing log.
type SearchStore interface {
	InsertSearches(ctx context.Context, records []pantry.SearchRecord) error
	QuerySearches(ctx context.Context, f pantry.SearchFilter) ([]pantry.SearchRecord, error)
	CountSearches(ctx context.Context, f pantry.SearchFilter) (int, error)
}

// Store is the full persistence surface.
type Store interface {
	SearchStore
	Ping(ctx context.Context) error
	Close() error
}
