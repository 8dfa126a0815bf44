package handlers

import (
	"net/http"
)

// HandleHealth reports liveness plus basic request counters.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		requests, errors, uptime := s.Metrics.Snapshot()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"requests": requests,
			"errors":   errors,
			"uptime":   uptime.String(),
		})
	}
}
