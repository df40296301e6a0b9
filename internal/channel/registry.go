package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/notify"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultUsageDays = 7

type Store interface {
	CreateChannel(ctx context.Context, ch *models.NotificationChannel) error
	UpdateChannel(ctx context.Context, ch *models.NotificationChannel) error
	GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error)
	ListChannels(ctx context.Context, teamID string) ([]models.NotificationChannel, error)
	DeleteChannel(ctx context.Context, id string) error
	SetChannelEnabled(ctx context.Context, id string, enabled bool) error
	ChannelNotifications(ctx context.Context, channelID string, since time.Time) ([]models.Notification, error)
}

type Tester interface {
	Test(ctx context.Context, ch *models.NotificationChannel) notify.TestResult
}

// Update is a partial channel change; nil fields are left as they are.
type Update struct {
	Name                    *string             `json:"name"`
	ChannelType             *models.ChannelType `json:"channel_type"`
	Enabled                 *bool               `json:"enabled"`
	Configuration           datatypes.JSON      `json:"configuration"`
	MaxNotificationsPerHour *int                `json:"max_notifications_per_hour"`
	MaxNotificationsPerDay  *int                `json:"max_notifications_per_day"`
}

// Registry manages notification channels.
type Registry struct {
	store  Store
	tester Tester
	log    *zap.Logger
	now    func() time.Time
}

func NewRegistry(store Store, tester Tester, log *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		tester: tester,
		log:    log.Named("channel"),
		now:    time.Now,
	}
}

// CreateChannel validates and stores ch. Warnings are returned alongside a nil error.
func (r *Registry) CreateChannel(ctx context.Context, ch *models.NotificationChannel) (ValidationResult, error) {
	result := Validate(ch.ChannelType, ch.Configuration)
	if !result.IsValid {
		return result, &ValidationError{Result: result}
	}
	if ch.Name == "" {
		return result, errors.New("channel name is required")
	}

	if err := r.store.CreateChannel(ctx, ch); err != nil {
		return result, err
	}

	r.log.Info("channel created",
		zap.String("channel_id", ch.ID),
		zap.String("team_id", ch.TeamID),
		zap.String("type", string(ch.ChannelType)),
	)
	return result, nil
}

// UpdateChannel applies u to the channel. The merged configuration is validated only when
// the type or the configuration changes.
func (r *Registry) UpdateChannel(ctx context.Context, id string, u Update) (*models.NotificationChannel, ValidationResult, error) {
	result := ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}

	ch, err := r.store.GetChannel(ctx, id)
	if err != nil {
		return nil, result, err
	}

	revalidate := false
	if u.ChannelType != nil && *u.ChannelType != ch.ChannelType {
		ch.ChannelType = *u.ChannelType
		revalidate = true
	}
	if u.Configuration != nil && !bytes.Equal(u.Configuration, ch.Configuration) {
		ch.Configuration = u.Configuration
		revalidate = true
	}

	if revalidate {
		result = Validate(ch.ChannelType, ch.Configuration)
		if !result.IsValid {
			return nil, result, &ValidationError{Result: result}
		}
	}

	if u.Name != nil {
		ch.Name = *u.Name
	}
	if u.Enabled != nil {
		ch.Enabled = *u.Enabled
	}
	if u.MaxNotificationsPerHour != nil {
		ch.MaxNotificationsPerHour = *u.MaxNotificationsPerHour
	}
	if u.MaxNotificationsPerDay != nil {
		ch.MaxNotificationsPerDay = *u.MaxNotificationsPerDay
	}

	if err := r.store.UpdateChannel(ctx, ch); err != nil {
		return nil, result, err
	}
	return ch, result, nil
}

func (r *Registry) GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	return r.store.GetChannel(ctx, id)
}

func (r *Registry) ListChannels(ctx context.Context, teamID string) ([]models.NotificationChannel, error) {
	return r.store.ListChannels(ctx, teamID)
}

func (r *Registry) DeleteChannel(ctx context.Context, id string) error {
	if err := r.store.DeleteChannel(ctx, id); err != nil {
		return err
	}
	r.log.Info("channel deleted", zap.String("channel_id", id))
	return nil
}

// TestChannel sends a test message. A channel that cannot be loaded is a failed test.
func (r *Registry) TestChannel(ctx context.Context, id string) notify.TestResult {
	start := r.now()
	ch, err := r.store.GetChannel(ctx, id)
	if err != nil {
		return notify.TestResult{
			Success:        false,
			Message:        fmt.Sprintf("channel not found: %v", err),
			ResponseTimeMs: r.now().Sub(start).Milliseconds(),
		}
	}

	result := r.tester.Test(ctx, ch)
	r.log.Info("channel tested",
		zap.String("channel_id", id),
		zap.Bool("success", result.Success),
		zap.Int64("response_time_ms", result.ResponseTimeMs),
	)
	return result
}

func (r *Registry) ToggleChannel(ctx context.Context, id string, enabled bool) (*models.NotificationChannel, error) {
	if err := r.store.SetChannelEnabled(ctx, id, enabled); err != nil {
		return nil, err
	}
	return r.store.GetChannel(ctx, id)
}

// DuplicateChannel copies a channel's type, configuration and caps. The copy starts disabled.
func (r *Registry) DuplicateChannel(ctx context.Context, id, newName, actor string) (*models.NotificationChannel, error) {
	src, err := r.store.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}

	if newName == "" {
		newName = src.Name + " (copy)"
	}

	dup := &models.NotificationChannel{
		TeamID:                  src.TeamID,
		Name:                    newName,
		ChannelType:             src.ChannelType,
		Enabled:                 false,
		Configuration:           append(datatypes.JSON(nil), src.Configuration...),
		MaxNotificationsPerHour: src.MaxNotificationsPerHour,
		MaxNotificationsPerDay:  src.MaxNotificationsPerDay,
		CreatedBy:               actor,
	}
	if err := r.store.CreateChannel(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}
