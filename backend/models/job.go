// Package models holds the persisted data shapes shared across
// services and handlers.
package models

import (
	"time"

	"github.com/upb/insight-gateway/backend/services/analysis"
)

// JobStatus tracks the lifecycle of an async analysis job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents one async analysis submission
type Job struct {
	ID         string            `json:"id"`
	Status     JobStatus         `json:"status"`
	Request    *analysis.Request `json:"request"`
	WebhookURL string            `json:"webhook_url,omitempty"`

	Result *analysis.Response `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job
func NewJob(id string, req *analysis.Request, webhookURL string) *Job {
	return &Job{
		ID:         id,
		Status:     JobStatusPending,
		Request:    req,
		WebhookURL: webhookURL,
		CreatedAt:  time.Now().UTC(),
	}
}

// MarkAsProcessing transitions the job to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now().UTC()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
}

// MarkAsCompleted transitions the job to completed with its result
func (j *Job) MarkAsCompleted(result *analysis.Response) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Result = result
	j.CompletedAt = &now
}

// MarkAsFailed transitions the job to failed
func (j *Job) MarkAsFailed(errMsg string) {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.Error = errMsg
	j.CompletedAt = &now
}

// IsTerminal reports whether the job has finished
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
