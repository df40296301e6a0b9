package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alertrouter/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Store) CreateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

func (s *Store) GetAlertRule(ctx context.Context, id string) (*models.AlertRule, error) {
	var rule models.AlertRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (s *Store) ListAlertRules(ctx context.Context, teamID string) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// EnabledAlertRules returns every enabled rule across teams.
func (s *Store) EnabledAlertRules(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled alert rules: %w", err)
	}
	return rules, nil
}

func (s *Store) RecordMetricSample(ctx context.Context, sample *models.MetricSample) error {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("failed to record metric sample: %w", err)
	}
	return nil
}

// EvaluateAlertRule compares the latest sample of the rule's metric against its threshold.
// On violation outside the cooldown window it creates an Alert and bumps the rule's trigger
// bookkeeping in the same transaction. It returns nil when nothing fired.
func (s *Store) EvaluateAlertRule(ctx context.Context, ruleID string, now time.Time) (*models.Alert, error) {
	var fired *models.Alert
	now = now.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule models.AlertRule
		if err := tx.First(&rule, "id = ?", ruleID).Error; err != nil {
			return translate(err)
		}
		if !rule.Enabled {
			return nil
		}

		if rule.LastTriggeredAt != nil && rule.CooldownMinutes > 0 {
			until := rule.LastTriggeredAt.Add(time.Duration(rule.CooldownMinutes) * time.Minute)
			if now.Before(until) {
				return nil
			}
		}

		var sample models.MetricSample
		err := tx.Where("team_id = ? AND metric_name = ?", rule.TeamID, rule.MetricName).
			Order("recorded_at desc, id desc").
			First(&sample).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if !rule.Operator.Compare(sample.Value, rule.Threshold) {
			return nil
		}

		value := sample.Value
		alert := &models.Alert{
			TeamID:      rule.TeamID,
			RuleID:      &rule.ID,
			Severity:    rule.Severity,
			Title:       fmt.Sprintf("%s: %s %s %g (current %g)", rule.Name, rule.MetricName, rule.Operator, rule.Threshold, value),
			MetricName:  rule.MetricName,
			MetricValue: &value,
			Context:     datatypes.JSONMap{
				"rule_name":   rule.Name,
				"operator":    string(rule.Operator),
				"threshold":   rule.Threshold,
				"sample_id":   sample.ID,
				"recorded_at": sample.RecordedAt.Format(time.RFC3339),
			},
			Tags:   datatypes.NewJSONType(stringTags(sample.Tags)),
			Status: models.AlertStatusActive,
		}
		if err := tx.Create(alert).Error; err != nil {
			return err
		}

		err = tx.Model(&models.AlertRule{}).
			Where("id = ?", rule.ID).
			Updates(map[string]interface{}{
				"last_triggered_at": now,
				"trigger_count":     gorm.Expr("trigger_count + 1"),
			}).Error
		if err != nil {
			return err
		}

		fired = alert
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate alert rule %s: %w", ruleID, err)
	}

	return fired, nil
}

func stringTags(in datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
