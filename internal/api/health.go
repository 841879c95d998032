package api

import (
	"net/http"
)

// Health handles GET /api/health. Reports database reachability and the
// live session count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"active_sessions": h.sm.ActiveCount(),
	})
}
