// Package pantry defines domain types for the Pantry recipe search service.
// This package has no project imports -- it is the dependency root.
package pantry

import (
	"context"
	"sort"
	"strings"
	"time"
)

// --- Recipes ---

// Recipe is a single recipe returned by the upstream search.
// Immutable once fetched; cached entries are never mutated.
type Recipe struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title"`
	Image             string   `json:"image,omitempty"`
	UsedIngredients   []string `json:"used_ingredients,omitempty"`
	MissedIngredients []string `json:"missed_ingredients,omitempty"`
}

// --- Outcomes ---

// OutcomeKind classifies the terminal result of a search.
type OutcomeKind string

const (
	// OutcomeSuccess means the upstream returned at least one recipe.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeNotFound means the request was valid but matched zero recipes.
	OutcomeNotFound OutcomeKind = "not_found"
	// OutcomeUpstreamError covers transport failures, timeouts, non-2xx
	// responses, and unparseable upstream payloads.
	OutcomeUpstreamError OutcomeKind = "upstream_error"
	// OutcomeInvalidInput means the ingredient set was empty after
	// normalization; no cache or network cost was incurred.
	OutcomeInvalidInput OutcomeKind = "invalid_input"
)

// Outcome is the tagged result of a recipe search. Exactly one of Recipes or
// Detail is meaningful depending on Kind.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Recipes []Recipe    `json:"recipes,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// --- Ingredient normalization and cache keys ---

// CacheKeyPrefix namespaces search entries in the cache store.
const CacheKeyPrefix = "recipes:"

// NormalizeIngredients lower-cases and trims each term, drops empties,
// deduplicates, and sorts. The result is order- and case-independent, so any
// spelling of the same ingredient set normalizes identically.
func NormalizeIngredients(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	out := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		term := strings.ToLower(strings.TrimSpace(ing))
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// CacheKey derives the deterministic cache key for a normalized ingredient
// list. Keys are kept human-readable ("recipes:egg,flour") rather than
// hashed; they carry no caller identity, so there is nothing to hide.
func CacheKey(normalized []string) string {
	return CacheKeyPrefix + strings.Join(normalized, ",")
}

// --- Search records ---

// SearchRecord is a single append-only timing record, one per search call,
// persisted for offline analysis.
type SearchRecord struct {
	ID          string      `json:"id"`
	CacheKey    string      `json:"cache_key"`
	Outcome     OutcomeKind `json:"outcome"`
	CacheHit    bool        `json:"cache_hit"`
	LatencyMs   int64       `json:"latency_ms"`
	ResultCount int         `json:"result_count"`
	RequestID   string      `json:"request_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SearchFilter narrows search-record queries.
type SearchFilter struct {
	Outcome  OutcomeKind
	CacheHit *bool
	Since    string // RFC 3339 lower bound, inclusive
	Until    string // RFC 3339 upper bound, exclusive
	Limit    int
	Offset   int
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}
