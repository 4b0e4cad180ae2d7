// Package testutil provides configurable test fakes for pantry interfaces.
package testutil

import (
	"context"
	"sync/atomic"

	pantry "github.com/telliott/pantry/internal"
)

// FakeSource is a configurable source.Source that counts calls.
type FakeSource struct {
	SourceName string
	SearchFn   func(ctx context.Context, ingredients []string) ([]pantry.Recipe, error)
	HealthFn   func(ctx context.Context) error

	searchCalls atomic.Int64
}

// Name returns the configured source name, defaulting to "fake".
func (f *FakeSource) Name() string {
	if f.SourceName != "" {
		return f.SourceName
	}
	return "fake"
}

// Search increments the call counter and delegates to SearchFn, or returns a
// single canned recipe.
func (f *FakeSource) Search(ctx context.Context, ingredients []string) ([]pantry.Recipe, error) {
	f.searchCalls.Add(1)
	if f.SearchFn != nil {
		return f.SearchFn(ctx, ingredients)
	}
	return []pantry.Recipe{{ID: 1, Title: "Fake Pancakes", UsedIngredients: ingredients}}, nil
}

// SearchCalls reports how many times Search has been invoked.
func (f *FakeSource) SearchCalls() int {
	return int(f.searchCalls.Load())
}

// HealthCheck delegates to HealthFn or reports healthy.
func (f *FakeSource) HealthCheck(ctx context.Context) error {
	if f.HealthFn != nil {
		return f.HealthFn(ctx)
	}
	return nil
}
