package server

import (
	"log/slog"
	"net/http"
)

// handlePurgeCache serves DELETE /admin/cache, dropping every cached entry.
// With ?key=recipes:egg,flour only that entry is removed.
func (s *server) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		s.deps.Cache.Delete(r.Context(), key)
		slog.LogAttrs(r.Context(), slog.LevelInfo, "cache entry deleted",
			slog.String("key", key),
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.deps.Cache.Purge(r.Context())
	slog.Info("cache purged")
	w.WriteHeader(http.StatusNoContent)
}
