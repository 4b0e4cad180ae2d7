package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	pantry "github.com/telliott/pantry/internal"
)

// searchResponse is the payload for a successful search.
type searchResponse struct {
	Recipes []pantry.Recipe `json:"recipes"`
	Count   int             `json:"count"`
	Cached  bool            `json:"cached"`
}

// handleSearch resolves GET /v1/recipes/search?ingredients=egg,flour.
// The ingredients parameter may be repeated; each value may itself be a
// comma-separated list.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var ingredients []string
	for _, v := range r.URL.Query()["ingredients"] {
		ingredients = append(ingredients, strings.Split(v, ",")...)
	}

	res := s.deps.Search.Search(r.Context(), ingredients)

	if s.deps.Metrics != nil {
		s.deps.Metrics.SearchOutcomes.WithLabelValues(string(res.Outcome.Kind)).Inc()
		if res.Outcome.Kind != pantry.OutcomeInvalidInput {
			if res.CacheHit {
				s.deps.Metrics.CacheHits.Inc()
			} else {
				s.deps.Metrics.CacheMisses.Inc()
			}
		}
	}

	if err := res.Outcome.Err(); err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Recipes: res.Outcome.Recipes,
		Count:   len(res.Outcome.Recipes),
		Cached:  res.CacheHit,
	})
}

// writeSearchError maps a search error to an HTTP status through the domain
// sentinels. Upstream detail is logged server-side and replaced with a
// generic message so internals (e.g. the API key in a URL) never leak.
func (s *server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pantry.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, pantry.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse("no recipes found"))
	default:
		slog.LogAttrs(r.Context(), slog.LevelError, "upstream search failed",
			slog.String("detail", err.Error()),
			slog.String("request_id", pantry.RequestIDFromContext(r.Context())),
		)
		writeJSON(w, http.StatusBadGateway, errorResponse("recipe source unavailable"))
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	return e
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// avoids the []string{v} alloc that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
