package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/alertrouter/internal/models"
)

type RuleStore interface {
	CreateAlertRule(ctx context.Context, rule *models.AlertRule) error
	GetAlertRule(ctx context.Context, id string) (*models.AlertRule, error)
	ListAlertRules(ctx context.Context, teamID string) ([]models.AlertRule, error)
}

// RuleManager manages the metric rules that produce alerts.
type RuleManager struct {
	store RuleStore
}

func NewRuleManager(store RuleStore) *RuleManager {
	return &RuleManager{store: store}
}

func (rm *RuleManager) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}
	return rm.store.CreateAlertRule(ctx, rule)
}

func (rm *RuleManager) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	return rm.store.GetAlertRule(ctx, id)
}

func (rm *RuleManager) ListRules(ctx context.Context, teamID string) ([]models.AlertRule, error) {
	return rm.store.ListAlertRules(ctx, teamID)
}

// ValidateRule checks the fields a rule needs before it can be evaluated.
func ValidateRule(rule *models.AlertRule) error {
	var problems []string
	if rule.TeamID == "" {
		problems = append(problems, "team_id is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		problems = append(problems, "rule name is required")
	}
	if strings.TrimSpace(rule.MetricName) == "" {
		problems = append(problems, "metric_name is required")
	}
	if !rule.Operator.Valid() {
		problems = append(problems, fmt.Sprintf("invalid operator: %q", rule.Operator))
	}
	if !rule.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("invalid severity: %q", rule.Severity))
	}
	if rule.CooldownMinutes < 0 {
		problems = append(problems, "cooldown_minutes must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
