package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubStore struct {
	rules       []models.SeverityRoutingRule
	rulesErr    error
	members     []models.TeamMember
	membersErr  error
	assignErr   error
	assignments []models.AlertAssignment
}

func (s *stubStore) EnabledRoutingRules(context.Context, string, models.Severity) ([]models.SeverityRoutingRule, error) {
	return s.rules, s.rulesErr
}

func (s *stubStore) TeamMembers(context.Context, string) ([]models.TeamMember, error) {
	return s.members, s.membersErr
}

func (s *stubStore) CreateAssignments(_ context.Context, rows []models.AlertAssignment) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.assignments = append(s.assignments, rows...)
	return nil
}

type stubOnCall struct {
	user *models.OnCallUser
	err  error
}

func (s stubOnCall) CurrentOnCallUser(context.Context, string, models.Severity, time.Time) (*models.OnCallUser, error) {
	return s.user, s.err
}

// Wednesday 2026-03-04 11:00 UTC and Saturday 2026-03-07 11:00 UTC.
var (
	weekdayNoon = time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	saturday    = time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC)
)

func newEngine(store Store, oncall OnCallLookup, at time.Time) *Engine {
	e := NewEngine(store, oncall, time.UTC, zap.NewNop())
	e.now = func() time.Time { return at }
	return e
}

func testAlert(sev models.Severity) *models.Alert {
	return &models.Alert{
		Model:    models.Model{ID: "alert-1"},
		TeamID:   "team-1",
		Severity: sev,
		Title:    "something broke",
	}
}

func TestOnCallFallbackWhenRuleHasNoUsers(t *testing.T) {
	backup := "U2"
	store := &stubStore{rules: []models.SeverityRoutingRule{{
		Model:                     models.Model{ID: "rule-1"},
		Severity:                  models.SeverityCritical,
		AssignedChannels:          datatypes.JSONSlice[string]{"ch-1"},
		InitialDelayMinutes:       1,
		EscalationIntervalMinutes: 7,
		MaxEscalationLevel:        3,
		WeekendEscalation:         true,
		Enabled:                   true,
		Priority:                  1,
	}}}
	oncall := stubOnCall{user: &models.OnCallUser{UserID: "U1", BackupUserID: &backup, IsPrimary: true}}

	res := newEngine(store, oncall, weekdayNoon).Route(context.Background(), testAlert(models.SeverityCritical))

	require.True(t, res.Success)
	assert.Equal(t, []string{"U1", "U2"}, res.AssignedUsers)
	assert.Equal(t, models.AssignmentReasonOnCallSchedule, res.AssignmentReason)
	assert.Equal(t, []string{"ch-1"}, res.AssignedChannels)
	assert.Equal(t, Escalation{InitialDelayMinutes: 1, EscalationIntervalMinutes: 7, MaxEscalationLevel: 3}, res.Escalation)
	assert.Equal(t, "rule-1", res.RuleID)

	require.Len(t, store.assignments, 2)
	for _, a := range store.assignments {
		assert.Equal(t, "alert-1", a.AlertID)
		assert.Equal(t, models.AssignmentReasonOnCallSchedule, a.AssignmentReason)
		assert.Equal(t, 1, a.AssignmentLevel)
	}
}

func TestRuleWithUsersUsesSeverityRouting(t *testing.T) {
	store := &stubStore{rules: []models.SeverityRoutingRule{{
		Model:             models.Model{ID: "rule-1"},
		AssignedUsers:     datatypes.JSONSlice[string]{"A", "B"},
		WeekendEscalation: true,
	}}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityHigh))

	assert.True(t, res.Success)
	assert.Equal(t, []string{"A", "B"}, res.AssignedUsers)
	assert.Equal(t, models.AssignmentReasonSeverityRouting, res.AssignmentReason)
	assert.Len(t, store.assignments, 2)
}

func TestRuleWithNobodyIsExplicitNoAssignment(t *testing.T) {
	store := &stubStore{rules: []models.SeverityRoutingRule{{
		Model:             models.Model{ID: "rule-1"},
		AssignedChannels:  datatypes.JSONSlice[string]{"ch-9"},
		WeekendEscalation: true,
	}}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityHigh))

	assert.True(t, res.Success)
	assert.Empty(t, res.AssignedUsers)
	assert.Equal(t, models.AssignmentReasonNoAssignment, res.AssignmentReason)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, []string{"ch-9"}, res.AssignedChannels)
	assert.Empty(t, store.assignments)
}

func TestFirstPassingRuleInPriorityOrderWins(t *testing.T) {
	store := &stubStore{rules: []models.SeverityRoutingRule{
		{Model: models.Model{ID: "p1-business-hours"}, Priority: 1, BusinessHoursOnly: true, WeekendEscalation: true, AssignedUsers: datatypes.JSONSlice[string]{"day"}},
		{Model: models.Model{ID: "p2-any-time"}, Priority: 2, WeekendEscalation: true, AssignedUsers: datatypes.JSONSlice[string]{"night"}},
	}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityMedium))
	assert.Equal(t, "p1-business-hours", res.RuleID)
	assert.Equal(t, []string{"day"}, res.AssignedUsers)

	evening := time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)
	res = newEngine(store, stubOnCall{}, evening).Route(context.Background(), testAlert(models.SeverityMedium))
	assert.Equal(t, "p2-any-time", res.RuleID)
	assert.Equal(t, []string{"night"}, res.AssignedUsers)
}

func TestWeekendRulesFallBackToDefault(t *testing.T) {
	members := []models.TeamMember{
		{UserID: "owner", Role: models.TeamRoleOwner},
		{UserID: "admin", Role: models.TeamRoleAdmin},
	}
	store := &stubStore{
		members: members,
		rules: []models.SeverityRoutingRule{
			{Model: models.Model{ID: "business"}, BusinessHoursOnly: true, WeekendEscalation: true, AssignedUsers: datatypes.JSONSlice[string]{"x"}},
			{Model: models.Model{ID: "weekday"}, WeekendEscalation: false, AssignedUsers: datatypes.JSONSlice[string]{"y"}},
		},
	}

	res := newEngine(store, stubOnCall{}, saturday).Route(context.Background(), testAlert(models.SeverityHigh))
	assert.True(t, res.Success)
	assert.Empty(t, res.RuleID)
	assert.Equal(t, models.AssignmentReasonDefaultRouting, res.AssignmentReason)
	assert.Equal(t, []string{"owner", "admin"}, res.AssignedUsers)
}

func TestDefaultRoutingLowSeverity(t *testing.T) {
	store := &stubStore{members: []models.TeamMember{
		{UserID: "owner", Role: models.TeamRoleOwner},
		{UserID: "admin", Role: models.TeamRoleAdmin},
		{UserID: "m1", Role: models.TeamRoleMember},
		{UserID: "m2", Role: models.TeamRoleMember},
		{UserID: "m3", Role: models.TeamRoleMember},
	}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityLow))

	require.True(t, res.Success)
	assert.Equal(t, []string{"admin", "m1"}, res.AssignedUsers)
	assert.Equal(t, models.AssignmentReasonDefaultRouting, res.AssignmentReason)
	assert.Equal(t, Escalation{InitialDelayMinutes: 60, EscalationIntervalMinutes: 60, MaxEscalationLevel: 2}, res.Escalation)
	require.Len(t, store.assignments, 2)
	assert.Equal(t, models.AssignmentReasonDefaultRouting, store.assignments[0].AssignmentReason)
}

func TestDefaultRoutingMediumPagesEveryone(t *testing.T) {
	store := &stubStore{members: []models.TeamMember{
		{UserID: "owner", Role: models.TeamRoleOwner},
		{UserID: "viewer", Role: models.TeamRoleViewer},
		{UserID: "m1", Role: models.TeamRoleMember},
	}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityMedium))
	assert.Equal(t, []string{"owner", "viewer", "m1"}, res.AssignedUsers)
}

func TestDefaultRoutingNoEligibleMembers(t *testing.T) {
	store := &stubStore{members: []models.TeamMember{{UserID: "m1", Role: models.TeamRoleMember}}}

	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityCritical))

	assert.False(t, res.Success)
	assert.Equal(t, models.AssignmentReasonNoAssignment, res.AssignmentReason)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, store.assignments)
}

func TestRuleRoutingErrorsFallBackToDefault(t *testing.T) {
	members := []models.TeamMember{{UserID: "admin", Role: models.TeamRoleAdmin}}
	ruleNoUsers := []models.SeverityRoutingRule{{Model: models.Model{ID: "r"}, WeekendEscalation: true}}

	tests := []struct {
		name   string
		store  *stubStore
		oncall stubOnCall
	}{
		{
			name:  "rule lookup fails",
			store: &stubStore{rulesErr: errors.New("db down"), members: members},
		},
		{
			name:   "on-call lookup fails",
			store:  &stubStore{rules: ruleNoUsers, members: members},
			oncall: stubOnCall{err: errors.New("schedule service down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newEngine(tt.store, tt.oncall, weekdayNoon).Route(context.Background(), testAlert(models.SeverityHigh))
			assert.True(t, res.Success)
			assert.Equal(t, models.AssignmentReasonDefaultRouting, res.AssignmentReason)
			assert.Equal(t, []string{"admin"}, res.AssignedUsers)
		})
	}
}

func TestDefaultRoutingErrorIsReported(t *testing.T) {
	store := &stubStore{membersErr: errors.New("members unavailable")}
	res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(models.SeverityInfo))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "members unavailable")
}

func TestDefaultEscalationTable(t *testing.T) {
	tests := []struct {
		sev  models.Severity
		want Escalation
	}{
		{models.SeverityCritical, Escalation{5, 10, 5}},
		{models.SeverityHigh, Escalation{15, 20, 4}},
		{models.SeverityMedium, Escalation{30, 30, 3}},
		{models.SeverityLow, Escalation{60, 60, 2}},
		{models.SeverityInfo, Escalation{120, 120, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sev), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultEscalation(tt.sev))

			store := &stubStore{members: []models.TeamMember{
				{UserID: "owner", Role: models.TeamRoleOwner},
				{UserID: "admin", Role: models.TeamRoleAdmin},
			}}
			res := newEngine(store, stubOnCall{}, weekdayNoon).Route(context.Background(), testAlert(tt.sev))
			assert.Equal(t, tt.want, res.Escalation)
		})
	}
}

func TestNumericConditionsFromStoredRule(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.CreateRoutingRule(ctx, &models.SeverityRoutingRule{
		TeamID:            "team-1",
		Severity:          models.SeverityHigh,
		AssignedUsers:     datatypes.JSONSlice[string]{"U7"},
		AssignedChannels:  datatypes.JSONSlice[string]{"ch-db"},
		WeekendEscalation: true,
		Enabled:           true,
		Priority:          1,
		Conditions: datatypes.JSONMap{
			"metric_value_min": 80,
			"context_filters":  map[string]any{"shard": 3},
		},
	}))

	value := 95.0
	alert := testAlert(models.SeverityHigh)
	alert.MetricValue = &value
	alert.Context = datatypes.JSONMap{"shard": 3}
	require.NoError(t, s.CreateAlert(ctx, alert))

	stored, err := s.GetAlert(ctx, alert.ID)
	require.NoError(t, err)

	res := newEngine(s, s, weekdayNoon).Route(ctx, stored)

	assert.True(t, res.Success)
	assert.Equal(t, models.AssignmentReasonSeverityRouting, res.AssignmentReason)
	assert.Equal(t, []string{"U7"}, res.AssignedUsers)
	assert.Equal(t, []string{"ch-db"}, res.AssignedChannels)

	rows, err := s.AlertAssignments(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "U7", rows[0].AssignedTo)
}
