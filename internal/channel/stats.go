package channel

import (
	"context"
	"time"

	"github.com/alertrouter/internal/models"
)

type DailyUsage struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type UsageStats struct {
	ChannelID          string                `json:"channel_id"`
	Days               int                   `json:"days"`
	TotalNotifications int                   `json:"total_notifications"`
	Successful         int                   `json:"successful"`
	Failed             int                   `json:"failed"`
	SuccessRate        float64               `json:"success_rate"`
	AvgDeliveryTimeMs  float64               `json:"avg_delivery_time_ms"`
	Daily              map[string]DailyUsage `json:"daily"`
}

// GetChannelUsageStats summarizes a channel's delivery attempts over the last days days.
func (r *Registry) GetChannelUsageStats(ctx context.Context, channelID string, days int) (*UsageStats, error) {
	if days <= 0 {
		days = defaultUsageDays
	}

	since := r.now().Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := r.store.ChannelNotifications(ctx, channelID, since)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		ChannelID: channelID,
		Days:      days,
		Daily:     make(map[string]DailyUsage),
	}

	var latencyMs float64
	var timed int
	for _, n := range rows {
		day := n.CreatedAt.UTC().Format("2006-01-02")
		d := stats.Daily[day]
		d.Total++
		stats.TotalNotifications++

		switch {
		case n.Status.Succeeded():
			d.Successful++
			stats.Successful++
		case n.Status == models.NotificationStatusFailed:
			d.Failed++
			stats.Failed++
		}
		stats.Daily[day] = d

		if n.SentAt != nil {
			latencyMs += float64(n.SentAt.Sub(n.CreatedAt).Milliseconds())
			timed++
		}
	}

	if stats.TotalNotifications > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.TotalNotifications) * 100
	}
	if timed > 0 {
		stats.AvgDeliveryTimeMs = latencyMs / float64(timed)
	}
	return stats, nil
}
