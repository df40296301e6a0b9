package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alertrouter/internal/models"
	"github.com/slack-go/slack"
)

func (d *Driver) testSlack(ctx context.Context, ch *models.NotificationChannel, c models.SlackConfig) TestResult {
	msg := &slack.WebhookMessage{
		Text: testMessage,
		Attachments: []slack.Attachment{
			{
				Color: "good",
				Title: fmt.Sprintf("Channel test: %s", ch.Name),
				Fields: []slack.AttachmentField{
					{
						Title: "Channel",
						Value: ch.Name,
						Short: true,
					},
					{
						Title: "Type",
						Value: string(ch.ChannelType),
						Short: true,
					},
				},
				Footer: "alertrouter",
				Ts:     json.Number(strconv.FormatInt(d.now().Unix(), 10)),
			},
		},
	}

	resp, err := d.postSlack(ctx, c, msg)
	if err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("slack request failed: %v", err)}
	}
	if !resp.ok() {
		return httpFailure("slack", resp)
	}

	return TestResult{
		Success: true,
		Message: "slack test delivered",
		Details: map[string]any{"status": resp.status},
	}
}

// postSlack applies the channel's username, icon and channel overrides and posts msg to the
// incoming webhook. Status classification is left to the caller.
func (d *Driver) postSlack(ctx context.Context, c models.SlackConfig, msg *slack.WebhookMessage) (webhookResponse, error) {
	if c.Username != "" {
		msg.Username = c.Username
	} else if msg.Username == "" {
		msg.Username = "alertrouter"
	}
	if c.IconEmoji != "" {
		msg.IconEmoji = c.IconEmoji
	}
	if c.Channel != "" {
		msg.Channel = c.Channel
	}

	return d.postWebhook(ctx, models.WebhookConfig{URL: c.WebhookURL, Method: http.MethodPost}, msg)
}

func alertSlackMessage(alert *models.Alert) *slack.WebhookMessage {
	fields := []slack.AttachmentField{
		{
			Title: "Severity",
			Value: string(alert.Severity),
			Short: true,
		},
		{
			Title: "Status",
			Value: string(alert.Status),
			Short: true,
		},
	}
	if alert.MetricName != "" {
		fields = append(fields, slack.AttachmentField{
			Title: "Metric",
			Value: alert.MetricName,
			Short: true,
		})
	}
	if alert.MetricValue != nil {
		fields = append(fields, slack.AttachmentField{
			Title: "Current Value",
			Value: fmt.Sprintf("%.2f", *alert.MetricValue),
			Short: true,
		})
	}

	return &slack.WebhookMessage{
		IconEmoji: severityEmoji(alert.Severity),
		Text:      fmt.Sprintf("%s alert: %s", alert.Severity, alert.Title),
		Attachments: []slack.Attachment{
			{
				Color:  severityColor(alert.Severity),
				Title:  alert.Title,
				Fields: fields,
				Footer: "alertrouter",
				Ts:     json.Number(strconv.FormatInt(alert.CreatedAt.Unix(), 10)),
			},
		},
	}
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return "#FF0000"
	case models.SeverityHigh:
		return "#FF6600"
	case models.SeverityMedium:
		return "#FFA500"
	case models.SeverityLow:
		return "#36A64F"
	default:
		return "#0000FF"
	}
}

func severityEmoji(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return ":red_circle:"
	case models.SeverityHigh:
		return ":warning:"
	case models.SeverityMedium:
		return ":large_orange_diamond:"
	case models.SeverityLow:
		return ":large_blue_circle:"
	default:
		return ":information_source:"
	}
}
