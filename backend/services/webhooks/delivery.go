// Package webhooks pushes terminal job states to caller-provided URLs.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/insight-gateway/backend/internal/observability"
	"github.com/upb/insight-gateway/backend/models"
	"github.com/upb/insight-gateway/backend/services/analysis"
)

// Payload is the JSON body POSTed to the webhook URL.
type Payload struct {
	JobID  string             `json:"job_id"`
	Status models.JobStatus   `json:"status"`
	Result *analysis.Response `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Service delivers webhook notifications with bounded retries.
type Service struct {
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewService creates a webhook delivery service. retries is the number
// of additional attempts after the first; backoff grows linearly per
// attempt.
func NewService(timeout time.Duration, retries int, backoff time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Service{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: backoff,
		logger:  logger,
		metrics: metrics,
	}
}

// Deliver posts the job's terminal state to its webhook URL. Delivery
// failure never changes job state; it is logged and counted only.
func (s *Service) Deliver(ctx context.Context, job *models.Job) {
	payload := Payload{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode webhook payload",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.backoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}

		lastErr = s.post(ctx, job.WebhookURL, body)
		if lastErr == nil {
			s.metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			s.logger.Info("webhook delivered",
				zap.String("job_id", job.ID),
				zap.Int("attempt", attempt+1))
			return
		}
	}

	s.metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
	s.logger.Error("webhook delivery failed",
		zap.String("job_id", job.ID),
		zap.String("url", job.WebhookURL),
		zap.Error(lastErr))
}

func (s *Service) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
