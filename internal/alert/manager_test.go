package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/notify"
	"github.com/alertrouter/internal/routing"
	"github.com/alertrouter/internal/store"
	"github.com/alertrouter/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRouter struct {
	result routing.RoutingResult
	routed []string
}

func (r *stubRouter) Route(_ context.Context, alert *models.Alert) routing.RoutingResult {
	r.routed = append(r.routed, alert.ID)
	res := r.result
	res.AlertID = alert.ID
	return res
}

type stubDeliverer struct {
	mu       sync.Mutex
	channels [][]string
}

func (d *stubDeliverer) Deliver(_ context.Context, _ *models.Alert, ids []string) []notify.DeliveryOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, ids)
	out := make([]notify.DeliveryOutcome, len(ids))
	for i, id := range ids {
		out[i] = notify.DeliveryOutcome{ChannelID: id, Status: models.NotificationStatusSent}
	}
	return out
}

func newService(t *testing.T, router Router) (*Service, *store.Store, *stubDeliverer) {
	t.Helper()
	s := storetest.New(t)
	d := &stubDeliverer{}
	if router == nil {
		router = &stubRouter{}
	}
	return NewService(s, router, d, zap.NewNop()), s, d
}

func TestIngestRoutesAndDelivers(t *testing.T) {
	router := &stubRouter{result: routing.RoutingResult{
		Success:          true,
		AssignedUsers:    []string{"U1"},
		AssignedChannels: []string{"ch-1", "ch-2"},
		AssignmentReason: models.AssignmentReasonSeverityRouting,
	}}
	svc, s, d := newService(t, router)

	out, err := svc.Ingest(context.Background(), &models.Alert{TeamID: "team-1", Severity: models.SeverityHigh, Title: "api 5xx"})
	require.NoError(t, err)

	require.NotEmpty(t, out.Alert.ID)
	assert.Equal(t, []string{out.Alert.ID}, router.routed)
	assert.Equal(t, [][]string{{"ch-1", "ch-2"}}, d.channels)
	assert.Len(t, out.Deliveries, 2)

	stored, err := s.GetAlert(context.Background(), out.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, stored.Status)
}

func TestIngestWithoutChannelsSkipsDelivery(t *testing.T) {
	svc, _, d := newService(t, &stubRouter{result: routing.RoutingResult{Success: true}})

	out, err := svc.Ingest(context.Background(), &models.Alert{TeamID: "team-1", Severity: models.SeverityInfo, Title: "fyi"})
	require.NoError(t, err)
	assert.Empty(t, out.Deliveries)
	assert.Empty(t, d.channels)
}

func TestIngestRejectsInvalidAlert(t *testing.T) {
	svc, _, _ := newService(t, nil)

	_, err := svc.Ingest(context.Background(), &models.Alert{Severity: "urgent"})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "team_id")
	assert.Contains(t, err.Error(), "severity")
	assert.Contains(t, err.Error(), "title")
}

func TestAcknowledgeTwice(t *testing.T) {
	svc, s, _ := newService(t, nil)
	ctx := context.Background()
	a := &models.Alert{TeamID: "team-1", Severity: models.SeverityHigh, Title: "x"}
	require.NoError(t, s.CreateAlert(ctx, a))

	ok, err := svc.Acknowledge(ctx, a.ID, "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Acknowledge(ctx, a.ID, "U1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLifecycleRequiresActor(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, "a", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Resolve(ctx, "a", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Suppress(ctx, "a", time.Now().Add(time.Hour), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSuppressAndResolve(t *testing.T) {
	svc, s, _ := newService(t, nil)
	ctx := context.Background()
	a := &models.Alert{TeamID: "team-1", Severity: models.SeverityLow, Title: "noisy"}
	require.NoError(t, s.CreateAlert(ctx, a))

	_, err := svc.Suppress(ctx, a.ID, time.Now().Add(-time.Minute), "U1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	ok, err := svc.Suppress(ctx, a.ID, time.Now().Add(time.Hour), "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Resolve(ctx, a.ID, "U2")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, got.Status)
	assert.Equal(t, "U2", got.ResolvedBy)
	assert.Equal(t, "U1", got.SuppressedBy)
}

func TestLifecycleUnknownAlert(t *testing.T) {
	svc, _, _ := newService(t, nil)
	_, err := svc.Resolve(context.Background(), "missing", "U1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStatisticsEmptyTeam(t *testing.T) {
	svc, _, _ := newService(t, nil)

	stats, err := svc.Statistics(context.Background(), "empty-team", 0)
	require.NoError(t, err)

	expected := models.NewAlertStatistics("empty-team", 24)
	assert.Equal(t, expected, stats)
}
