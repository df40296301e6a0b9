package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/alertrouter/internal/alert"
	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/notify"
)

const DefaultBaseURL = "http://localhost:8080"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
	Warnings   []string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) ListChannels(ctx context.Context, teamID string) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	err := c.do(ctx, http.MethodGet, "/api/v1/teams/"+teamID+"/channels", nil, nil, &channels)
	return channels, err
}

func (c *Client) ValidateChannel(ctx context.Context, channelType models.ChannelType, configuration json.RawMessage) (*channel.ValidationResult, error) {
	var result channel.ValidationResult
	body := map[string]any{"channel_type": channelType, "configuration": configuration}
	if err := c.do(ctx, http.MethodPost, "/api/v1/channels/validate", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TestChannel(ctx context.Context, id string) (*notify.TestResult, error) {
	var result notify.TestResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/channels/"+id+"/test", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ToggleChannel(ctx context.Context, id string, enabled bool) (*models.NotificationChannel, error) {
	var ch models.NotificationChannel
	if err := c.do(ctx, http.MethodPut, "/api/v1/channels/"+id+"/toggle", nil, map[string]bool{"enabled": enabled}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) DuplicateChannel(ctx context.Context, id, name string) (*models.NotificationChannel, error) {
	var ch models.NotificationChannel
	if err := c.do(ctx, http.MethodPost, "/api/v1/channels/"+id+"/duplicate", nil, map[string]string{"name": name}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) ChannelStats(ctx context.Context, id string, days int) (*channel.UsageStats, error) {
	query := url.Values{}
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}

	var stats channel.UsageStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/channels/"+id+"/stats", query, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) AcknowledgeAlert(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Acknowledged bool `json:"acknowledged"`
	}
	err := c.do(ctx, http.MethodPut, "/api/v1/alerts/"+id+"/acknowledge", nil, nil, &resp)
	return resp.Acknowledged, err
}

func (c *Client) ResolveAlert(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Resolved bool `json:"resolved"`
	}
	err := c.do(ctx, http.MethodPut, "/api/v1/alerts/"+id+"/resolve", nil, nil, &resp)
	return resp.Resolved, err
}

func (c *Client) SuppressAlert(ctx context.Context, id string, d time.Duration) (bool, error) {
	var resp struct {
		Suppressed bool `json:"suppressed"`
	}
	body := map[string]time.Time{"until": time.Now().Add(d).UTC()}
	err := c.do(ctx, http.MethodPut, "/api/v1/alerts/"+id+"/suppress", nil, body, &resp)
	return resp.Suppressed, err
}

func (c *Client) AlertStatistics(ctx context.Context, teamID string, hours int) (*models.AlertStatistics, error) {
	query := url.Values{}
	if hours > 0 {
		query.Set("hours", strconv.Itoa(hours))
	}

	var stats models.AlertStatistics
	if err := c.do(ctx, http.MethodGet, "/api/v1/teams/"+teamID+"/alerts/stats", query, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) EvaluateRules(ctx context.Context) (*alert.BatchResult, error) {
	var result alert.BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/alert-rules/evaluate", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, data, v interface{}) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, endpoint)
	u.RawQuery = query.Encode()

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error    string   `json:"error"`
			Errors   []string `json:"errors"`
			Warnings []string `json:"warnings"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			Errors:     errResp.Errors,
			Warnings:   errResp.Warnings,
		}
	}

	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
