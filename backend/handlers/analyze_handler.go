package handlers

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/app"
	"github.com/upb/insight-gateway/backend/services/analysis"
	"github.com/upb/insight-gateway/backend/utils"
)

// AnalyzeHandler serves POST /api/v1/analyze: synchronous analysis of a
// structured payload through the provider router.
func AnalyzeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analysis.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
			return
		}

		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		requestID := chimiddleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = uuid.NewString()
		}

		resp, err := deps.Analysis.Analyze(r.Context(), requestID, &req)
		if err != nil {
			if r.Context().Err() != nil {
				// Client went away; nothing useful to write.
				deps.Logger.Debug("analyze request cancelled",
					zap.String("request_id", requestID))
				return
			}
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, resp); err != nil {
			deps.Logger.Error("failed to write analyze response", zap.Error(err))
		}
	}
}
