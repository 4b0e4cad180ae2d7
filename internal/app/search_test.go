package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pantry "github.com/telliott/pantry/internal"
	"github.com/telliott/pantry/internal/breaker"
	"github.com/telliott/pantry/internal/testutil"
)

// collectRecorder gathers emitted search records.
type collectRecorder struct {
	mu      sync.Mutex
	records []pantry.SearchRecord
}

func (c *collectRecorder) Record(r pantry.SearchRecord) {
	c.mu.Lock()
	c.records = append(c.records, r)
	c.mu.Unlock()
}

func (c *collectRecorder) last(t *testing.T) pantry.SearchRecord {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		t.Fatal("no search record emitted")
	}
	return c.records[len(c.records)-1]
}

func (c *collectRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func newService(src *testutil.FakeSource, c *testutil.FakeCache, rec Recorder) *SearchService {
	return NewSearchService(c, src, SearchConfig{
		TTL:          time.Minute,
		FetchTimeout: time.Second,
		Recorder:     rec,
	})
}

func TestSearch_MissThenHit(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{}
	fc := testutil.NewFakeCache()
	rec := &collectRecorder{}
	svc := newService(src, fc, rec)
	ctx := context.Background()

	// First call: miss, fetch, populate.
	res := svc.Search(ctx, []string{"egg", "flour"})
	if res.Outcome.Kind != pantry.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome.Kind)
	}
	if res.CacheHit {
		t.Error("first call should be a cache miss")
	}
	if len(res.Outcome.Recipes) == 0 {
		t.Fatal("success outcome should carry recipes")
	}
	if src.SearchCalls() != 1 {
		t.Fatalf("fetch calls = %d, want 1", src.SearchCalls())
	}
	if r := rec.last(t); r.CacheHit || r.Outcome != pantry.OutcomeSuccess {
		t.Errorf("record = %+v, want miss/success", r)
	}

	// Second call with a case/whitespace variant of the same set: hit,
	// fetch NOT called again, identical payload.
	res2 := svc.Search(ctx, []string{"Flour", " Egg "})
	if res2.Outcome.Kind != pantry.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", res2.Outcome.Kind)
	}
	if !res2.CacheHit {
		t.Error("second call should be a cache hit")
	}
	if src.SearchCalls() != 1 {
		t.Errorf("fetch calls = %d, want 1 (cached)", src.SearchCalls())
	}
	if len(res2.Outcome.Recipes) != len(res.Outcome.Recipes) ||
		res2.Outcome.Recipes[0].ID != res.Outcome.Recipes[0].ID {
		t.Errorf("cached payload differs: %+v vs %+v", res2.Outcome.Recipes, res.Outcome.Recipes)
	}
	if r := rec.last(t); !r.CacheHit {
		t.Errorf("record = %+v, want cache_hit=true", r)
	}
	if rec.count() != 2 {
		t.Errorf("records = %d, want one per call", rec.count())
	}
}

func TestSearch_EmptyInput(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{}
	fc := testutil.NewFakeCache()
	rec := &collectRecorder{}
	svc := newService(src, fc, rec)

	for _, in := range [][]string{nil, {}, {""}, {"  ", "\t"}} {
		res := svc.Search(context.Background(), in)
		if res.Outcome.Kind != pantry.OutcomeInvalidInput {
			t.Errorf("Search(%q) = %s, want invalid_input", in, res.Outcome.Kind)
		}
	}
	if src.SearchCalls() != 0 {
		t.Errorf("fetch calls = %d, want 0 for invalid input", src.SearchCalls())
	}
	if fc.Gets != 0 || fc.Sets != 0 {
		t.Errorf("cache touched (%d gets, %d sets), want untouched", fc.Gets, fc.Sets)
	}
	if r := rec.last(t); r.Outcome != pantry.OutcomeInvalidInput || r.CacheKey != "" {
		t.Errorf("record = %+v", r)
	}
}

func TestSearch_NotFoundNotCached(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{
		SearchFn: func(context.Context, []string) ([]pantry.Recipe, error) {
			return nil, nil
		},
	}
	fc := testutil.NewFakeCache()
	svc := newService(src, fc, nil)

	res := svc.Search(context.Background(), []string{"unobtainium"})
	if res.Outcome.Kind != pantry.OutcomeNotFound {
		t.Fatalf("outcome = %s, want not_found", res.Outcome.Kind)
	}
	if fc.Len() != 0 {
		t.Error("empty results must not be cached")
	}

	// The miss repeats: not_found is re-fetched every time.
	svc.Search(context.Background(), []string{"unobtainium"})
	if src.SearchCalls() != 2 {
		t.Errorf("fetch calls = %d, want 2", src.SearchCalls())
	}
}

func TestSearch_UpstreamErrorNotCached(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{
		SearchFn: func(context.Context, []string) ([]pantry.Recipe, error) {
			return nil, errors.New("connection reset")
		},
	}
	fc := testutil.NewFakeCache()
	rec := &collectRecorder{}
	svc := newService(src, fc, rec)

	res := svc.Search(context.Background(), []string{"egg"})
	if res.Outcome.Kind != pantry.OutcomeUpstreamError {
		t.Fatalf("outcome = %s, want upstream_error", res.Outcome.Kind)
	}
	if res.Outcome.Detail == "" {
		t.Error("upstream error should carry detail")
	}
	if fc.Len() != 0 {
		t.Error("failures must not be cached")
	}
	if r := rec.last(t); r.Outcome != pantry.OutcomeUpstreamError || r.CacheHit {
		t.Errorf("record = %+v", r)
	}
}

func TestSearch_FetchTimeout(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{
		SearchFn: func(ctx context.Context, _ []string) ([]pantry.Recipe, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	fc := testutil.NewFakeCache()
	svc := NewSearchService(fc, src, SearchConfig{
		TTL:          time.Minute,
		FetchTimeout: 20 * time.Millisecond,
	})

	res := svc.Search(context.Background(), []string{"egg"})
	if res.Outcome.Kind != pantry.OutcomeUpstreamError {
		t.Fatalf("outcome = %s, want upstream_error on timeout", res.Outcome.Kind)
	}
	if fc.Len() != 0 {
		t.Error("timed-out fetch must not populate the cache")
	}
}

func TestSearch_CacheUnavailableFallsThrough(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{}
	fc := testutil.NewFakeCache()
	fc.Unavailable = true
	rec := &collectRecorder{}
	svc := newService(src, fc, rec)

	// Every call fetches; the dead store never fails the request.
	for range 3 {
		res := svc.Search(context.Background(), []string{"egg", "flour"})
		if res.Outcome.Kind != pantry.OutcomeSuccess {
			t.Fatalf("outcome = %s, want success despite dead cache", res.Outcome.Kind)
		}
		if res.CacheHit {
			t.Error("dead cache should always read as miss")
		}
	}
	if src.SearchCalls() != 3 {
		t.Errorf("fetch calls = %d, want 3 (forced misses)", src.SearchCalls())
	}
}

func TestSearch_TTLExpiryForcesRefetch(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{}
	fc := testutil.NewFakeCache()
	svc := NewSearchService(fc, src, SearchConfig{
		TTL:          30 * time.Millisecond,
		FetchTimeout: time.Second,
	})
	ctx := context.Background()

	svc.Search(ctx, []string{"egg"})
	time.Sleep(50 * time.Millisecond)

	res := svc.Search(ctx, []string{"egg"})
	if res.CacheHit {
		t.Error("entry past its TTL should read as miss")
	}
	if src.SearchCalls() != 2 {
		t.Errorf("fetch calls = %d, want 2 after expiry", src.SearchCalls())
	}
}

func TestSearch_CorruptCacheEntryDropped(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{}
	fc := testutil.NewFakeCache()
	svc := newService(src, fc, nil)
	ctx := context.Background()

	key := pantry.CacheKey(pantry.NormalizeIngredients([]string{"egg"}))
	fc.Set(ctx, key, []byte("not json"), time.Minute)

	res := svc.Search(ctx, []string{"egg"})
	if res.Outcome.Kind != pantry.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success via refetch", res.Outcome.Kind)
	}
	if res.CacheHit {
		t.Error("corrupt entry should count as miss")
	}
	if src.SearchCalls() != 1 {
		t.Errorf("fetch calls = %d, want 1", src.SearchCalls())
	}
}

func TestSearch_BreakerShortCircuits(t *testing.T) {
	t.Parallel()
	src := &testutil.FakeSource{
		SearchFn: func(context.Context, []string) ([]pantry.Recipe, error) {
			return nil, errors.New("boom")
		},
	}
	fc := testutil.NewFakeCache()
	brk := breaker.New(breaker.Config{
		ErrorThreshold: 0.5,
		MinSamples:     2,
		WindowSeconds:  60,
		OpenTimeout:    time.Minute,
	})
	svc := NewSearchService(fc, src, SearchConfig{
		TTL:          time.Minute,
		FetchTimeout: time.Second,
		Breaker:      brk,
	})
	ctx := context.Background()

	// Two failures trip the breaker.
	svc.Search(ctx, []string{"egg"})
	svc.Search(ctx, []string{"egg"})
	if brk.State() != breaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", brk.State())
	}

	// Third call short-circuits without touching the source.
	res := svc.Search(ctx, []string{"egg"})
	if res.Outcome.Kind != pantry.OutcomeUpstreamError {
		t.Fatalf("outcome = %s, want upstream_error", res.Outcome.Kind)
	}
	if src.SearchCalls() != 2 {
		t.Errorf("fetch calls = %d, want 2 (third short-circuited)", src.SearchCalls())
	}
}
