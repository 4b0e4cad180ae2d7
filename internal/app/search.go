// Package app contains the application services for the pantry gateway.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	pantry "github.com/telliott/pantry/internal"
	"github.com/telliott/pantry/internal/breaker"
	"github.com/telliott/pantry/internal/cache"
	"github.com/telliott/pantry/internal/source"
	"github.com/telliott/pantry/internal/telemetry"
)

// Recorder records search timing records asynchronously.
type Recorder interface {
	Record(pantry.SearchRecord)
}

// Result is the full outcome of one search call.
type Result struct {
	Outcome  pantry.Outcome
	CacheHit bool
	Latency  time.Duration
}

// SearchConfig holds tunables for the search service.
type SearchConfig struct {
	TTL          time.Duration      // cache entry time-to-live
	FetchTimeout time.Duration      // upstream call deadline
	Breaker      *breaker.Breaker   // nil = no short-circuiting
	Recorder     Recorder           // nil = no record emission
	Metrics      *telemetry.Metrics // nil = no upstream metrics
}

// SearchService implements the cache-aside read-through search:
// check the cache, fetch from the upstream on miss, populate the cache on
// success. The cache never fails the request -- an unavailable store behaves
// as a permanent miss -- and failed fetches are never cached.
type SearchService struct {
	cache cache.Cache
	src   source.Source
	cfg   SearchConfig
}

// NewSearchService returns a SearchService over the given cache and source.
func NewSearchService(c cache.Cache, src source.Source, cfg SearchConfig) *SearchService {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &SearchService{cache: c, src: src, cfg: cfg}
}

// Search resolves an ingredient set to a tagged outcome. Every branch returns
// a value; nothing here is fatal. Exactly one search record is emitted per
// call.
func (s *SearchService) Search(ctx context.Context, ingredients []string) Result {
	start := time.Now()

	terms := pantry.NormalizeIngredients(ingredients)
	if len(terms) == 0 {
		// Caller error: no cache or network cost incurred.
		return s.resolve(ctx, start, "", false, pantry.Outcome{
			Kind:   pantry.OutcomeInvalidInput,
			Detail: "ingredient list is empty",
		})
	}

	key := pantry.CacheKey(terms)

	if data, ok := s.cache.Get(ctx, key); ok {
		var recipes []pantry.Recipe
		if err := json.Unmarshal(data, &recipes); err == nil {
			return s.resolve(ctx, start, key, true, pantry.Outcome{
				Kind:    pantry.OutcomeSuccess,
				Recipes: recipes,
			})
		}
		// Undecodable entry: drop it and treat the lookup as a miss.
		slog.LogAttrs(ctx, slog.LevelWarn, "corrupt cache entry dropped",
			slog.String("key", key),
		)
		s.cache.Delete(ctx, key)
	}

	if s.cfg.Breaker != nil && !s.cfg.Breaker.Allow() {
		return s.resolve(ctx, start, key, false, pantry.Outcome{
			Kind:   pantry.OutcomeUpstreamError,
			Detail: "upstream circuit open",
		})
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	fetchStart := time.Now()
	recipes, err := s.src.Search(fetchCtx, terms)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.UpstreamDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.UpstreamErrors.WithLabelValues(s.src.Name()).Inc()
		}
		if s.cfg.Breaker != nil {
			s.cfg.Breaker.RecordFailure()
		}
		// Failures are reported, never cached.
		return s.resolve(ctx, start, key, false, pantry.Outcome{
			Kind:   pantry.OutcomeUpstreamError,
			Detail: err.Error(),
		})
	}
	if s.cfg.Breaker != nil {
		s.cfg.Breaker.RecordSuccess()
	}

	if len(recipes) == 0 {
		// A valid request with zero results; not cached so a later restock
		// of the upstream catalog is visible within one TTL window.
		return s.resolve(ctx, start, key, false, pantry.Outcome{
			Kind: pantry.OutcomeNotFound,
		})
	}

	if data, err := json.Marshal(recipes); err == nil {
		s.cache.Set(ctx, key, data, s.cfg.TTL)
	}

	return s.resolve(ctx, start, key, false, pantry.Outcome{
		Kind:    pantry.OutcomeSuccess,
		Recipes: recipes,
	})
}

// resolve finalizes a search: it emits the timing record and packages the
// result. Record emission is fire-and-forget.
func (s *SearchService) resolve(ctx context.Context, start time.Time, key string, hit bool, out pantry.Outcome) Result {
	elapsed := time.Since(start)
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.Record(pantry.SearchRecord{
			CacheKey:    key,
			Outcome:     out.Kind,
			CacheHit:    hit,
			LatencyMs:   elapsed.Milliseconds(),
			ResultCount: len(out.Recipes),
			RequestID:   pantry.RequestIDFromContext(ctx),
			CreatedAt:   time.Now().UTC(),
		})
	}
	return Result{Outcome: out, CacheHit: hit, Latency: elapsed}
}
