package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alertrouter/internal/models"
)

type webhookResponse struct {
	status  int
	headers http.Header
}

func (r webhookResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (d *Driver) testWebhook(ctx context.Context, ch *models.NotificationChannel, c models.WebhookConfig) TestResult {
	payload := map[string]any{
		"test":         true,
		"channel_id":   ch.ID,
		"channel_name": ch.Name,
		"timestamp":    d.now().UTC().Format(time.RFC3339),
		"message":      testMessage,
	}

	resp, err := d.postWebhook(ctx, c, payload)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("webhook request failed: %v", err)}
	}

	if !resp.ok() {
		return httpFailure("webhook", resp)
	}

	return TestResult{
		Success: true,
		Message: "webhook test delivered",
		Details: map[string]any{"status": resp.status},
	}
}

// httpFailure reports a non-2xx answer from a webhook-style endpoint.
func httpFailure(kind string, resp webhookResponse) TestResult {
	return TestResult{
		Success: false,
		Message: fmt.Sprintf("%s returned HTTP %d", kind, resp.status),
		Details: map[string]any{
			"status":      resp.status,
			"status_text": http.StatusText(resp.status),
			"headers":     flattenHeaders(resp.headers),
		},
	}
}

// webhookHeaders layers configured headers over the defaults, then applies authentication.
func (d *Driver) webhookHeaders(c models.WebhookConfig) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", d.userAgent)
	for k, v := range c.Headers {
		h.Set(k, v)
	}

	if auth := c.Authentication; auth != nil {
		switch auth.Type {
		case "bearer":
			h.Set("Authorization", "Bearer "+auth.Token)
		case "basic":
			creds := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
			h.Set("Authorization", "Basic "+creds)
		case "api_key":
			if auth.APIKeyHeader != "" {
				h.Set(auth.APIKeyHeader, auth.APIKeyValue)
			}
		}
	}
	return h
}

func (d *Driver) postWebhook(ctx context.Context, c models.WebhookConfig, payload any) (webhookResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return webhookResponse{}, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	method := strings.ToUpper(c.Method)
	if method == "" {
		method = http.MethodPost
	}

	ctx, cancel := context.WithTimeout(ctx, d.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.URL, bytes.NewReader(body))
	if err != nil {
		return webhookResponse{}, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header = d.webhookHeaders(c)

	resp, err := d.client.Do(req)
	if err != nil {
		return webhookResponse{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return webhookResponse{status: resp.StatusCode, headers: resp.Header}, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func alertPayload(ch *models.NotificationChannel, alert *models.Alert) map[string]any {
	return map[string]any{
		"alert_id":     alert.ID,
		"team_id":      alert.TeamID,
		"channel_id":   ch.ID,
		"severity":     alert.Severity,
		"title":        alert.Title,
		"status":       alert.Status,
		"metric_name":  alert.MetricName,
		"metric_value": alert.MetricValue,
		"tags":         alert.TagMap(),
		"context":      alert.Context,
		"created_at":   alert.CreatedAt.UTC().Format(time.RFC3339),
	}
}
