package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alertrouter/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateRoutingRule(ctx context.Context, rule *models.SeverityRoutingRule) error {
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create routing rule: %w", err)
	}
	return nil
}

func (s *Store) UpdateRoutingRule(ctx context.Context, rule *models.SeverityRoutingRule) error {
	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update routing rule: %w", err)
	}
	return nil
}

func (s *Store) GetRoutingRule(ctx context.Context, id string) (*models.SeverityRoutingRule, error) {
	var rule models.SeverityRoutingRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (s *Store) DeleteRoutingRule(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.SeverityRoutingRule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete routing rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListRoutingRules(ctx context.Context, teamID string) ([]models.SeverityRoutingRule, error) {
	var rules []models.SeverityRoutingRule
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("severity asc, priority asc, created_at asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list routing rules: %w", err)
	}
	return rules, nil
}

// EnabledRoutingRules returns the enabled rules for a team and severity in precedence order.
// Equal priorities keep creation order.
func (s *Store) EnabledRoutingRules(ctx context.Context, teamID string, severity models.Severity) ([]models.SeverityRoutingRule, error) {
	var rules []models.SeverityRoutingRule
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND severity = ? AND enabled = ?", teamID, severity, true).
		Order("priority asc, created_at asc").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load routing rules: %w", err)
	}
	return rules, nil
}

func (s *Store) AddTeamMember(ctx context.Context, m *models.TeamMember) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// TeamMembers returns members in the order they joined.
func (s *Store) TeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("id asc").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	return members, nil
}

func (s *Store) CreateAssignments(ctx context.Context, assignments []models.AlertAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&assignments).Error; err != nil {
		return fmt.Errorf("failed to create assignments: %w", err)
	}
	return nil
}

func (s *Store) AlertAssignments(ctx context.Context, alertID string) ([]models.AlertAssignment, error) {
	var rows []models.AlertAssignment
	err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	return rows, nil
}

func (s *Store) CreateOnCallSchedule(ctx context.Context, sched *models.OnCallSchedule) error {
	if err := s.db.WithContext(ctx).Create(sched).Error; err != nil {
		return fmt.Errorf("failed to create on-call schedule: %w", err)
	}
	return nil
}

// CurrentOnCallUser returns the responder on shift at the given instant, or nil when nobody
// is. Severity-specific shifts win over catch-all ones, primaries over secondaries.
func (s *Store) CurrentOnCallUser(ctx context.Context, teamID string, severity models.Severity, at time.Time) (*models.OnCallUser, error) {
	var sched models.OnCallSchedule
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND (severity = ? OR severity = '')", teamID, severity).
		Where("starts_at <= ? AND ends_at > ?", at.UTC(), at.UTC()).
		Order("severity desc, is_primary desc, starts_at desc").
		First(&sched).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve on-call user: %w", err)
	}

	return &models.OnCallUser{
		UserID:       sched.UserID,
		IsPrimary:    sched.IsPrimary,
		ScheduleName: sched.ScheduleName,
		BackupUserID: sched.BackupUserID,
	}, nil
}
