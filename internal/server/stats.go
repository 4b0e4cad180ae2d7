package server

import (
	"log/slog"
	"net/http"
	"strconv"

	pantry "github.com/telliott/pantry/internal"
)

// --- Pagination helpers ---

type pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

type listResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func parsePagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// handleStats serves GET /v1/stats: the search timing log, newest first,
// filterable by outcome, cache_hit, and a time window. This is the feed for
// offline latency analysis.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit := parsePagination(r)

	filter := pantry.SearchFilter{
		Outcome: pantry.OutcomeKind(q.Get("outcome")),
		Since:   q.Get("since"),
		Until:   q.Get("until"),
		Limit:   limit,
		Offset:  offset,
	}
	if v := q.Get("cache_hit"); v != "" {
		hit := v == "true" || v == "1"
		filter.CacheHit = &hit
	}

	records, err := s.deps.Store.QuerySearches(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	total, err := s.deps.Store.CountSearches(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if records == nil {
		records = []pantry.SearchRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data:       records,
		Pagination: pagination{Offset: offset, Limit: limit, Total: total},
	})
}

// writeStoreError logs the full error server-side and returns a sanitized
// message to the client to avoid leaking internal details (e.g. SQLite errors).
func (s *server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	slog.LogAttrs(r.Context(), slog.LevelError, "stats query failed",
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse("internal error"))
}
