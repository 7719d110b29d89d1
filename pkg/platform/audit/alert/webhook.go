// Package alert provides audit.Alerter implementations for critical events.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sanctum/pkg/platform/audit"
)

const webhookMaxAttempts = 3

// Webhook posts critical events as JSON. Retries on 5xx and transport errors
// until the caller's context expires; 4xx responses are final.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	backoff time.Duration
}

type WebhookOption func(*Webhook)

func WithHeaders(h map[string]string) WebhookOption {
	return func(w *Webhook) { w.headers = h }
}

func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

func WithBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type webhookPayload struct {
	Source string      `json:"source"`
	Event  audit.Event `json:"event"`
}

func (w *Webhook) Alert(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(webhookPayload{Source: "sanctum", Event: event})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < webhookMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create alert request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range w.headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return fmt.Errorf("alert webhook rejected: HTTP %d", resp.StatusCode)
		default:
			lastErr = fmt.Errorf("alert webhook server error: HTTP %d", resp.StatusCode)
		}
	}
	return fmt.Errorf("alert webhook failed after %d attempts: %w", webhookMaxAttempts, lastErr)
}
