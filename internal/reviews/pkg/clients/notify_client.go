package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reviewsync_api/internal/reviews/business/services"
	"reviewsync_api/internal/reviews/business/services/sync"
)

// NotifyClient отправляет итог прогона на вебхук. Формат сообщения на стороне
// получателя; отсюда уходит плоский JSON с новыми отзывами и отказами юнитов.
type NotifyClient struct {
	webhookURL string
	auth       services.AuthEngine
	client     *http.Client
}

func NewNotifyClient(webhookURL string, auth services.AuthEngine) *NotifyClient {
	return &NotifyClient{
		webhookURL: webhookURL,
		auth:       auth,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type notifyPayload struct {
	RunID      string              `json:"run_id"`
	StartedAt  string              `json:"started_at,omitempty"`
	NewReviews []map[string]string `json:"new_reviews"`
	Failures   []notifyFailure     `json:"failures"`
}

type notifyFailure struct {
	Customer string `json:"customer"`
	Source   string `json:"source"`
	Error    string `json:"error"`
}

// SendSummary публикует агрегированный итог прогона.
func (c *NotifyClient) SendSummary(ctx context.Context, summary *sync.Summary) error {
	payload := notifyPayload{
		RunID:      summary.RunID,
		StartedAt:  summary.StartedAt.Format(time.RFC3339),
		NewReviews: make([]map[string]string, 0, len(summary.NewReviews)),
		Failures:   make([]notifyFailure, 0, len(summary.Failures)),
	}
	for _, r := range summary.NewReviews {
		flat := make(map[string]string, len(r))
		for f, v := range r {
			flat[string(f)] = v
		}
		payload.NewReviews = append(payload.NewReviews, flat)
	}
	for _, f := range summary.Failures {
		payload.Failures = append(payload.Failures, notifyFailure{
			Customer: f.Customer,
			Source:   string(f.Source),
			Error:    f.Err.Error(),
		})
	}
	return c.post(ctx, payload)
}

// SendFailure -- последний рубеж: сообщает об ошибке, уронившей весь прогон.
func (c *NotifyClient) SendFailure(ctx context.Context, runErr error) error {
	return c.post(ctx, map[string]string{
		"error": runErr.Error(),
	})
}

func (c *NotifyClient) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.auth != nil {
		if err := c.auth.SetAuth(req); err != nil {
			return fmt.Errorf("authorizing notification: %w", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sending notification: unexpected status code: %s", resp.Status)
	}
	return nil
}
