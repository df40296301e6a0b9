package store

import (
	"context"
	"fmt"
	"time"

	"github.com/alertrouter/internal/models"
)

func (s *Store) CreateChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if err := s.db.WithContext(ctx).Create(ch).Error; err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (s *Store) UpdateChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if err := s.db.WithContext(ctx).Save(ch).Error; err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return nil
}

func (s *Store) GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	var ch models.NotificationChannel
	if err := s.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ch, nil
}

// ListChannels returns a team's channels, newest first.
func (s *Store) ListChannels(ctx context.Context, teamID string) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at desc").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

func (s *Store) DeleteChannel(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.NotificationChannel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetChannelEnabled(ctx context.Context, id string, enabled bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.NotificationChannel{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle channel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// ChannelNotifications returns the delivery attempts over a channel created at or after since.
func (s *Store) ChannelNotifications(ctx context.Context, channelID string, since time.Time) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND created_at >= ?", channelID, since.UTC()).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return rows, nil
}

// CountDelivered counts successful deliveries over a channel since the given instant.
func (s *Store) CountDelivered(ctx context.Context, channelID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("channel_id = ? AND created_at >= ?", channelID, since.UTC()).
		Where("status IN ?", []models.NotificationStatus{models.NotificationStatusSent, models.NotificationStatusDelivered}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
