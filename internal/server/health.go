package server

import (
	"context"
	"net/http"
)

// Pre-allocated response body and header value slice; avoids a []byte
// heap escape and the []string{v} alloc from Header.Set per call.
var (
	okBody       = []byte("ok")
	notReadyBody = []byte("not ready")
	plainCT      = []string{"text/plain"}
)

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.readiness(r.Context()); err != nil {
		w.Header()["Content-Type"] = plainCT
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write(notReadyBody)
		return
	}
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// readiness verifies the store and the upstream source are reachable.
func (s *server) readiness(ctx context.Context) error {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(ctx); err != nil {
			return err
		}
	}
	if s.deps.Source != nil {
		return s.deps.Source.HealthCheck(ctx)
	}
	return nil
}
