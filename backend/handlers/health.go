package handlers

import (
	"net/http"

	"github.com/upb/insight-gateway/backend/app"
	"github.com/upb/insight-gateway/backend/utils"
)

// HealthCheck serves GET /healthz: process liveness.
func HealthCheck(_ *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck serves GET /readyz: external dependency reachability.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Ready(r.Context()); err != nil {
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
