package models

import (
	"time"

	"gorm.io/datatypes"
)

type ChannelType string

const (
	ChannelTypeEmail   ChannelType = "email"
	ChannelTypeWebhook ChannelType = "webhook"
	ChannelTypeSlack   ChannelType = "slack"
	ChannelTypeSMS     ChannelType = "sms"
	ChannelTypePush    ChannelType = "push"
	ChannelTypeInApp   ChannelType = "in_app"
)

type NotificationChannel struct {
	Model
	TeamID                  string         `gorm:"index;not null" json:"team_id"`
	Name                    string         `gorm:"not null" json:"name"`
	ChannelType             ChannelType    `gorm:"not null" json:"channel_type"`
	Enabled                 bool           `json:"enabled"`
	Configuration           datatypes.JSON `json:"configuration"`
	MaxNotificationsPerHour int            `json:"max_notifications_per_hour"`
	MaxNotificationsPerDay  int            `json:"max_notifications_per_day"`
	CreatedBy               string         `json:"created_by"`
}

type NotificationStatus string

const (
	NotificationStatusPending     NotificationStatus = "pending"
	NotificationStatusSent        NotificationStatus = "sent"
	NotificationStatusDelivered   NotificationStatus = "delivered"
	NotificationStatusFailed      NotificationStatus = "failed"
	NotificationStatusRateLimited NotificationStatus = "rate_limited"
)

// Succeeded reports whether the attempt reached the transport successfully.
func (s NotificationStatus) Succeeded() bool {
	return s == NotificationStatusSent || s == NotificationStatusDelivered
}

// Notification records one delivery attempt of an alert over a channel.
type Notification struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	AlertID   *string            `gorm:"index" json:"alert_id,omitempty"`
	ChannelID string             `gorm:"index:idx_notification_channel_created;not null" json:"channel_id"`
	Status    NotificationStatus `gorm:"not null" json:"status"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `gorm:"index:idx_notification_channel_created" json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}
