package notify

import (
	"context"
	"errors"
	"time"

	"github.com/alertrouter/internal/metrics"
	"github.com/alertrouter/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxParallelDeliveries = 8

type DeliveryStore interface {
	GetChannel(ctx context.Context, id string) (*models.NotificationChannel, error)
	CountDelivered(ctx context.Context, channelID string, since time.Time) (int64, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type Sender interface {
	Send(ctx context.Context, ch *models.NotificationChannel, alert *models.Alert) error
}

// DeliveryOutcome is the result of delivering one alert over one channel.
type DeliveryOutcome struct {
	ChannelID   string                    `json:"channel_id"`
	ChannelType models.ChannelType        `json:"channel_type,omitempty"`
	Status      models.NotificationStatus `json:"status,omitempty"`
	Skipped     bool                      `json:"skipped,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Dispatcher delivers routed alerts to their channels, enforcing per-channel caps.
type Dispatcher struct {
	store  DeliveryStore
	sender Sender
	log    *zap.Logger
	now    func() time.Time
}

func NewDispatcher(store DeliveryStore, sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		log:    log.Named("dispatcher"),
		now:    time.Now,
	}
}

// Deliver sends alert to every channel in channelIDs concurrently. Outcomes are returned in
// the order of the de-duplicated input.
func (d *Dispatcher) Deliver(ctx context.Context, alert *models.Alert, channelIDs []string) []DeliveryOutcome {
	ids := unique(channelIDs)
	outcomes := make([]DeliveryOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(maxParallelDeliveries)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = d.deliverOne(ctx, alert, id)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) deliverOne(ctx context.Context, alert *models.Alert, channelID string) DeliveryOutcome {
	out := DeliveryOutcome{ChannelID: channelID}
	log := d.log.With(zap.String("alert_id", alert.ID), zap.String("channel_id", channelID))

	ch, err := d.store.GetChannel(ctx, channelID)
	if err != nil {
		log.Warn("channel lookup failed", zap.Error(err))
		out.Skipped = true
		out.Error = err.Error()
		return out
	}
	out.ChannelType = ch.ChannelType

	if !ch.Enabled {
		out.Skipped = true
		out.Error = "channel disabled"
		return out
	}

	limited, err := d.rateLimited(ctx, ch)
	if err != nil {
		log.Warn("rate limit check failed", zap.Error(err))
	}
	if limited {
		out.Status = models.NotificationStatusRateLimited
		out.Error = "channel notification cap reached"
		d.record(ctx, log, alert, ch, out, d.now(), nil)
		return out
	}

	start := d.now()
	sendErr := d.sender.Send(ctx, ch, alert)
	metrics.DeliveryDuration.WithLabelValues(string(ch.ChannelType)).Observe(time.Since(start).Seconds())

	if sendErr != nil {
		log.Warn("delivery failed", zap.Error(sendErr))
		out.Status = models.NotificationStatusFailed
		out.Error = sendErr.Error()
		d.record(ctx, log, alert, ch, out, start, nil)
		return out
	}

	sentAt := d.now().UTC()
	out.Status = models.NotificationStatusSent
	d.record(ctx, log, alert, ch, out, start, &sentAt)
	return out
}

// rateLimited reports whether the channel has hit its hourly or daily cap. Zero means unlimited.
func (d *Dispatcher) rateLimited(ctx context.Context, ch *models.NotificationChannel) (bool, error) {
	now := d.now()
	caps := []struct {
		max    int
		window time.Duration
	}{
		{ch.MaxNotificationsPerHour, time.Hour},
		{ch.MaxNotificationsPerDay, 24 * time.Hour},
	}

	var errs []error
	for _, c := range caps {
		if c.max <= 0 {
			continue
		}
		count, err := d.store.CountDelivered(ctx, ch.ID, now.Add(-c.window))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if count >= int64(c.max) {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// record stores the attempt. createdAt is when the attempt began, so SentAt minus CreatedAt is
// the delivery latency.
func (d *Dispatcher) record(ctx context.Context, log *zap.Logger, alert *models.Alert, ch *models.NotificationChannel, out DeliveryOutcome, createdAt time.Time, sentAt *time.Time) {
	metrics.DeliveryAttempts.WithLabelValues(string(ch.ChannelType), string(out.Status)).Inc()

	alertID := alert.ID
	n := &models.Notification{
		ChannelID: ch.ID,
		Status:    out.Status,
		Error:     out.Error,
		CreatedAt: createdAt.UTC(),
		SentAt:    sentAt,
	}
	if alertID != "" {
		n.AlertID = &alertID
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		log.Error("failed to record notification", zap.Error(err))
	}
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
