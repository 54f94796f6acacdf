package api

import (
	"net/http"
)

func (s *Server) handleBackendStats(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil || s.backend.Stats() == nil {
		jsonError(w, "backend stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.backend.Stats().Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"documents":   s.docs.Len(),
	})
}
