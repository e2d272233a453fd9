package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/app"
	"github.com/upb/insight-gateway/backend/services/analysis"
	"github.com/upb/insight-gateway/backend/utils"
)

// submitJobRequest is the POST /api/v1/jobs payload
type submitJobRequest struct {
	StructuredData map[string]interface{} `json:"structured_data" validate:"required,min=1"`
	Notes          []string               `json:"notes,omitempty" validate:"omitempty,dive,max=2000"`
	WebhookURL     string                 `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// submitJobResponse acknowledges an accepted job
type submitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SubmitJobHandler serves POST /api/v1/jobs: async analysis submission.
func SubmitJobHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
			return
		}

		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		job, err := deps.Jobs.Submit(r.Context(), &analysis.Request{
			StructuredData: req.StructuredData,
			Notes:          req.Notes,
		}, req.WebhookURL)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteAccepted(w, submitJobResponse{
			JobID:  job.ID,
			Status: string(job.Status),
		}); err != nil {
			deps.Logger.Error("failed to write job response", zap.Error(err))
		}
	}
}

// GetJobHandler serves GET /api/v1/jobs/{id}: job state polling.
func GetJobHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := utils.ValidateUUID(id); err != nil {
			_ = utils.WriteBadRequest(w, "job id must be a UUID", nil)
			return
		}

		job, err := deps.Jobs.Get(r.Context(), id)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteOK(w, job); err != nil {
			deps.Logger.Error("failed to write job response", zap.Error(err))
		}
	}
}
