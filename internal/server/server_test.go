package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pantry "github.com/telliott/pantry/internal"
	"github.com/telliott/pantry/internal/app"
	"github.com/telliott/pantry/internal/testutil"
)

type testDeps struct {
	src   *testutil.FakeSource
	cache *testutil.FakeCache
	store *testutil.FakeSearchStore
}

func newTestHandler(t *testing.T, opts ...func(*testDeps)) (http.Handler, *testDeps) {
	t.Helper()
	d := &testDeps{
		src:   &testutil.FakeSource{},
		cache: testutil.NewFakeCache(),
		store: &testutil.FakeSearchStore{},
	}
	for _, opt := range opts {
		opt(d)
	}
	svc := app.NewSearchService(d.cache, d.src, app.SearchConfig{
		TTL:          time.Minute,
		FetchTimeout: time.Second,
	})
	h := New(Deps{
		Search: svc,
		Cache:  d.cache,
		Store:  d.store,
		Source: d.src,
	})
	return h, d
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := doGet(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestReadyz_NotReady(t *testing.T) {
	t.Parallel()
	d := &testDeps{
		src:   &testutil.FakeSource{},
		cache: testutil.NewFakeCache(),
	}
	svc := app.NewSearchService(d.cache, d.src, app.SearchConfig{})
	h := New(Deps{
		Search:     svc,
		ReadyCheck: func(context.Context) error { return errors.New("db down") },
	})

	rec := doGet(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestReadyz_UpstreamDown(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, func(d *testDeps) {
		d.src.HealthFn = func(context.Context) error { return errors.New("connection refused") }
	})

	rec := doGet(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)

	rec := doGet(t, h, "/v1/recipes/search?ingredients=egg,flour")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Recipes []pantry.Recipe `json:"recipes"`
		Count   int             `json:"count"`
		Cached  bool            `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count == 0 || len(resp.Recipes) == 0 {
		t.Fatal("expected at least one recipe")
	}
	if resp.Cached {
		t.Error("first call should not be served from cache")
	}
	if d.src.SearchCalls() != 1 {
		t.Errorf("fetch calls = %d, want 1", d.src.SearchCalls())
	}

	// Repeated-parameter form hits the same cache entry.
	rec = doGet(t, h, "/v1/recipes/search?ingredients=Flour&ingredients=%20Egg%20")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Cached {
		t.Error("second call should be served from cache")
	}
	if d.src.SearchCalls() != 1 {
		t.Errorf("fetch calls = %d, want 1 after cache hit", d.src.SearchCalls())
	}
}

func TestSearch_MissingIngredients(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)

	rec := doGet(t, h, "/v1/recipes/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if d.src.SearchCalls() != 0 {
		t.Errorf("fetch calls = %d, want 0", d.src.SearchCalls())
	}
}

func TestSearch_NotFound(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, func(d *testDeps) {
		d.src.SearchFn = func(context.Context, []string) ([]pantry.Recipe, error) {
			return nil, nil
		}
	})

	rec := doGet(t, h, "/v1/recipes/search?ingredients=unobtainium")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t, func(d *testDeps) {
		d.src.SearchFn = func(context.Context, []string) ([]pantry.Recipe, error) {
			return nil, errors.New("internal spoonacular key leaked")
		}
	})

	rec := doGet(t, h, "/v1/recipes/search?ingredients=egg")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	// Upstream detail stays server-side.
	if body := rec.Body.String(); strings.Contains(body, "leaked") {
		t.Errorf("response leaked upstream detail: %s", body)
	}
}

func TestSearch_RequestIDHeader(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	rec := doGet(t, h, "/healthz")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("response should carry a request ID")
	}

	// A supplied request ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("request ID = %q, want req-42", got)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)

	records := []pantry.SearchRecord{
		{ID: "a", Outcome: pantry.OutcomeSuccess, CacheHit: false, LatencyMs: 120},
		{ID: "b", Outcome: pantry.OutcomeSuccess, CacheHit: true, LatencyMs: 1},
	}
	if err := d.store.InsertSearches(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	rec := doGet(t, h, "/v1/stats?limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data       []pantry.SearchRecord `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("got %d records, want 2", len(resp.Data))
	}
	if resp.Pagination.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Pagination.Total)
	}
}

func TestStats_StoreError(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)
	d.store.QueryErr = errors.New("disk full")

	rec := doGet(t, h, "/v1/stats")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestPurgeCache(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)

	// Prime the cache through a search.
	doGet(t, h, "/v1/recipes/search?ingredients=egg")
	if d.cache.Len() != 1 {
		t.Fatalf("cache entries = %d, want 1", d.cache.Len())
	}

	req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if d.cache.Len() != 0 {
		t.Errorf("cache entries = %d after purge, want 0", d.cache.Len())
	}
}

func TestPurgeCache_SingleKey(t *testing.T) {
	t.Parallel()
	h, d := newTestHandler(t)

	doGet(t, h, "/v1/recipes/search?ingredients=egg")
	doGet(t, h, "/v1/recipes/search?ingredients=flour")
	if d.cache.Len() != 2 {
		t.Fatalf("cache entries = %d, want 2", d.cache.Len())
	}

	req := httptest.NewRequest(http.MethodDelete, "/admin/cache?key=recipes:egg", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if d.cache.Len() != 1 {
		t.Errorf("cache entries = %d after single delete, want 1", d.cache.Len())
	}
}
