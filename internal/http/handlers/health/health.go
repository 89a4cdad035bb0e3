// Package health exposes the liveness probe.
package health

import (
	"net/http"

	"github.com/aanand-mishra/people-api/internal/utils/response"
)

// New handles GET /api/health. A 200 with a fixed body means the
// process is up and serving; no dependencies are probed.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "API endpoint is healthy",
		})
	}
}
