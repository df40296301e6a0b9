package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/notify"
	"github.com/alertrouter/internal/store"
	"github.com/alertrouter/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubTester struct {
	calls []string
}

func (s *stubTester) Test(_ context.Context, ch *models.NotificationChannel) notify.TestResult {
	s.calls = append(s.calls, ch.ID)
	return notify.TestResult{Success: true, Message: "ok", ResponseTimeMs: 3}
}

func newRegistry(t *testing.T) (*channel.Registry, *store.Store, *stubTester) {
	t.Helper()
	s := storetest.New(t)
	tester := &stubTester{}
	return channel.NewRegistry(s, tester, zap.NewNop()), s, tester
}

func slackChannel() *models.NotificationChannel {
	return &models.NotificationChannel{
		TeamID:                  "team-1",
		Name:                    "slack-ops",
		ChannelType:             models.ChannelTypeSlack,
		Enabled:                 true,
		Configuration:           datatypes.JSON(`{"webhook_url":"https://hooks.slack.com/services/T/B/X","channel":"#ops"}`),
		MaxNotificationsPerHour: 10,
		MaxNotificationsPerDay:  100,
		CreatedBy:               "u1",
	}
}

func TestCreateChannelRejectsInvalidConfig(t *testing.T) {
	reg, s, _ := newRegistry(t)
	ctx := context.Background()

	ch := &models.NotificationChannel{
		TeamID:        "team-1",
		Name:          "mail",
		ChannelType:   models.ChannelTypeEmail,
		Configuration: datatypes.JSON(`{"recipients":[]}`),
	}
	res, err := reg.CreateChannel(ctx, ch)

	var verr *channel.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, res.IsValid)
	assert.Contains(t, verr.Result.Errors[0], "recipient")

	list, err := s.ListChannels(ctx, "team-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateChannelReturnsWarnings(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ch := slackChannel()
	ch.Configuration = datatypes.JSON(`{"webhook_url":"https://chat.example.com/hook"}`)

	res, err := reg.CreateChannel(context.Background(), ch)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.NotEmpty(t, res.Warnings)
	assert.NotEmpty(t, ch.ID)
}

func TestUpdateChannelValidatesOnConfigChange(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	ch := slackChannel()
	_, err := reg.CreateChannel(ctx, ch)
	require.NoError(t, err)

	name := "renamed"
	updated, _, err := reg.UpdateChannel(ctx, ch.ID, channel.Update{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	_, res, err := reg.UpdateChannel(ctx, ch.ID, channel.Update{Configuration: datatypes.JSON(`{"channel":"#ops"}`)})
	var verr *channel.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, res.IsValid)

	email := models.ChannelTypeEmail
	_, _, err = reg.UpdateChannel(ctx, ch.ID, channel.Update{ChannelType: &email})
	require.ErrorAs(t, err, &verr, "slack config is not a valid email config")

	got, err := reg.GetChannel(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChannelTypeSlack, got.ChannelType)
	assert.Equal(t, "renamed", got.Name)
}

func TestDuplicateChannelIsDisabledCopy(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	src := slackChannel()
	_, err := reg.CreateChannel(ctx, src)
	require.NoError(t, err)

	dup, err := reg.DuplicateChannel(ctx, src.ID, "", "u2")
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, dup.ID)
	assert.False(t, dup.Enabled)
	assert.Equal(t, "slack-ops (copy)", dup.Name)
	assert.Equal(t, src.ChannelType, dup.ChannelType)
	assert.JSONEq(t, string(src.Configuration), string(dup.Configuration))
	assert.Equal(t, 10, dup.MaxNotificationsPerHour)
	assert.Equal(t, 100, dup.MaxNotificationsPerDay)
	assert.Equal(t, "u2", dup.CreatedBy)
}

func TestToggleAndDelete(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	ch := slackChannel()
	_, err := reg.CreateChannel(ctx, ch)
	require.NoError(t, err)

	toggled, err := reg.ToggleChannel(ctx, ch.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	require.NoError(t, reg.DeleteChannel(ctx, ch.ID))
	_, err = reg.GetChannel(ctx, ch.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestTestChannel(t *testing.T) {
	reg, _, tester := newRegistry(t)
	ctx := context.Background()
	ch := slackChannel()
	_, err := reg.CreateChannel(ctx, ch)
	require.NoError(t, err)

	res := reg.TestChannel(ctx, ch.ID)
	assert.True(t, res.Success)
	assert.Equal(t, []string{ch.ID}, tester.calls)

	res = reg.TestChannel(ctx, "missing")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")
}

func TestGetChannelUsageStats(t *testing.T) {
	reg, s, _ := newRegistry(t)
	ctx := context.Background()
	ch := slackChannel()
	_, err := reg.CreateChannel(ctx, ch)
	require.NoError(t, err)

	empty, err := reg.GetChannelUsageStats(ctx, ch.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, empty.Days)
	assert.Zero(t, empty.SuccessRate)
	assert.Empty(t, empty.Daily)

	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	sentFast := yesterday.Add(100 * time.Millisecond)
	sentSlow := now.Add(300 * time.Millisecond)
	rows := []models.Notification{
		{ChannelID: ch.ID, Status: models.NotificationStatusSent, CreatedAt: yesterday, SentAt: &sentFast},
		{ChannelID: ch.ID, Status: models.NotificationStatusDelivered, CreatedAt: now, SentAt: &sentSlow},
		{ChannelID: ch.ID, Status: models.NotificationStatusFailed, CreatedAt: now},
		{ChannelID: ch.ID, Status: models.NotificationStatusRateLimited, CreatedAt: now},
		{ChannelID: ch.ID, Status: models.NotificationStatusSent, CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, s.CreateNotification(ctx, &rows[i]))
	}

	stats, err := reg.GetChannelUsageStats(ctx, ch.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalNotifications)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
	assert.InDelta(t, 200.0, stats.AvgDeliveryTimeMs, 1)

	today := stats.Daily[now.Format("2006-01-02")]
	assert.Equal(t, 3, today.Total)
	assert.Equal(t, 1, today.Successful)
	assert.Equal(t, 1, today.Failed)
	assert.Equal(t, 1, stats.Daily[yesterday.Format("2006-01-02")].Total)
}
