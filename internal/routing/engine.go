package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/alertrouter/internal/metrics"
	"github.com/alertrouter/internal/models"
	"go.uber.org/zap"
)

type Store interface {
	EnabledRoutingRules(ctx context.Context, teamID string, severity models.Severity) ([]models.SeverityRoutingRule, error)
	TeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error)
	CreateAssignments(ctx context.Context, assignments []models.AlertAssignment) error
}

// OnCallLookup resolves who is on shift. A nil user with a nil error means nobody is.
type OnCallLookup interface {
	CurrentOnCallUser(ctx context.Context, teamID string, severity models.Severity, at time.Time) (*models.OnCallUser, error)
}

// RoutingResult is the routing decision for one alert. When nobody could be assigned,
// AssignmentReason is no_assignment and Message says why.
type RoutingResult struct {
	Success                bool                    `json:"success"`
	AlertID                string                  `json:"alert_id"`
	RuleID                 string                  `json:"rule_id,omitempty"`
	AssignedUsers          []string                `json:"assigned_users"`
	AssignedChannels       []string                `json:"assigned_channels"`
	AssignmentReason       models.AssignmentReason `json:"assignment_reason"`
	Escalation             Escalation              `json:"escalation"`
	AutoAcknowledgeMinutes *int                    `json:"auto_acknowledge_minutes,omitempty"`
	AutoResolveMinutes     *int                    `json:"auto_resolve_minutes,omitempty"`
	Message                string                  `json:"message,omitempty"`
}

// Engine selects a routing rule for an alert and records the resulting assignments.
type Engine struct {
	store  Store
	oncall OnCallLookup
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

func NewEngine(store Store, oncall OnCallLookup, loc *time.Location, log *zap.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		store:  store,
		oncall: oncall,
		loc:    loc,
		log:    log.Named("routing"),
		now:    time.Now,
	}
}

// Route decides who and which channels receive alert. Errors during rule routing fall back
// to default routing; Route itself never fails.
func (e *Engine) Route(ctx context.Context, alert *models.Alert) RoutingResult {
	log := e.log.With(
		zap.String("alert_id", alert.ID),
		zap.String("team_id", alert.TeamID),
		zap.String("severity", string(alert.Severity)),
	)

	result, err := e.routeByRules(ctx, alert, e.now())
	switch {
	case err != nil:
		log.Warn("rule routing failed, using default routing", zap.Error(err))
		metrics.RoutingFallbacks.Inc()
		result = e.routeDefault(ctx, alert, log)
	case result == nil:
		result = e.routeDefault(ctx, alert, log)
	}

	metrics.RoutingDecisions.WithLabelValues(string(alert.Severity), string(result.AssignmentReason)).Inc()
	log.Info("alert routed",
		zap.Bool("success", result.Success),
		zap.String("reason", string(result.AssignmentReason)),
		zap.Strings("users", result.AssignedUsers),
		zap.Strings("channels", result.AssignedChannels),
	)
	return *result
}

// routeByRules returns nil when no enabled rule applies to the alert.
func (e *Engine) routeByRules(ctx context.Context, alert *models.Alert, at time.Time) (*RoutingResult, error) {
	rules, err := e.store.EnabledRoutingRules(ctx, alert.TeamID, alert.Severity)
	if err != nil {
		return nil, err
	}

	var rule *models.SeverityRoutingRule
	for i := range rules {
		if rulePasses(&rules[i], alert, at, e.loc) {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return nil, nil
	}

	result := &RoutingResult{
		Success:                true,
		AlertID:                alert.ID,
		RuleID:                 rule.ID,
		AssignedChannels:       append([]string{}, rule.AssignedChannels...),
		Escalation:             ruleEscalation(rule),
		AutoAcknowledgeMinutes: rule.AutoAcknowledgeMinutes,
		AutoResolveMinutes:     rule.AutoResolveMinutes,
	}

	users := append([]string{}, rule.AssignedUsers...)
	reason := models.AssignmentReasonSeverityRouting

	if len(users) == 0 {
		onCall, err := e.oncall.CurrentOnCallUser(ctx, alert.TeamID, alert.Severity, at)
		if err != nil {
			return nil, fmt.Errorf("on-call lookup: %w", err)
		}
		if onCall != nil {
			users = append(users, onCall.UserID)
			if onCall.BackupUserID != nil && *onCall.BackupUserID != "" && *onCall.BackupUserID != onCall.UserID {
				users = append(users, *onCall.BackupUserID)
			}
			reason = models.AssignmentReasonOnCallSchedule
		}
	}

	if len(users) == 0 {
		result.AssignedUsers = []string{}
		result.AssignmentReason = models.AssignmentReasonNoAssignment
		result.Message = fmt.Sprintf("routing rule %s has no assigned users and nobody is on call", rule.ID)
		return result, nil
	}

	if err := e.store.CreateAssignments(ctx, assignments(alert.ID, users, reason)); err != nil {
		return nil, err
	}

	result.AssignedUsers = users
	result.AssignmentReason = reason
	return result, nil
}

func (e *Engine) routeDefault(ctx context.Context, alert *models.Alert, log *zap.Logger) *RoutingResult {
	result := &RoutingResult{
		AlertID:          alert.ID,
		AssignedUsers:    []string{},
		AssignedChannels: []string{},
		AssignmentReason: models.AssignmentReasonDefaultRouting,
		Escalation:       DefaultEscalation(alert.Severity),
	}

	members, err := e.store.TeamMembers(ctx, alert.TeamID)
	if err != nil {
		log.Error("default routing failed", zap.Error(err))
		result.Message = err.Error()
		return result
	}

	users := defaultAssignees(alert.Severity, members)
	if len(users) == 0 {
		result.AssignmentReason = models.AssignmentReasonNoAssignment
		result.Message = fmt.Sprintf("no eligible team members for %s alerts in team %s", alert.Severity, alert.TeamID)
		log.Warn("alert left unassigned", zap.String("reason", result.Message))
		return result
	}

	if err := e.store.CreateAssignments(ctx, assignments(alert.ID, users, models.AssignmentReasonDefaultRouting)); err != nil {
		log.Error("default routing failed", zap.Error(err))
		result.Message = err.Error()
		return result
	}

	result.Success = true
	result.AssignedUsers = users
	return result
}

func assignments(alertID string, users []string, reason models.AssignmentReason) []models.AlertAssignment {
	rows := make([]models.AlertAssignment, 0, len(users))
	for _, u := range users {
		rows = append(rows, models.AlertAssignment{
			AlertID:          alertID,
			AssignedTo:       u,
			AssignmentReason: reason,
			AssignmentLevel:  1,
		})
	}
	return rows
}
