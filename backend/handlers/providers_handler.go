package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/app"
	"github.com/upb/insight-gateway/backend/utils"
)

// ProvidersHandler serves GET /api/v1/providers: a per-provider health
// snapshot for operations.
func ProvidersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, deps.Registry.Len())
		for _, p := range deps.Registry.List() {
			names = append(names, p.Name())
		}

		snapshot := deps.Router.Health().Snapshot(names)
		if err := utils.WriteOK(w, snapshot); err != nil {
			deps.Logger.Error("failed to write providers response", zap.Error(err))
		}
	}
}
