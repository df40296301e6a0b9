package store

import (
	"context"
	"fmt"
	"time"

	"github.com/alertrouter/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

// transition applies updates to an alert only while its status is one of from. It reports
// false when the alert exists but is no longer in a matching state.
func (s *Store) transition(ctx context.Context, alertID string, from []models.AlertStatus, updates map[string]interface{}) (bool, error) {
	var applied bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Alert{}).Where("id = ?", alertID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		result := tx.Model(&models.Alert{}).
			Where("id = ? AND status IN ?", alertID, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		applied = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// AcknowledgeAlert moves an active or suppressed alert to acknowledged.
func (s *Store) AcknowledgeAlert(ctx context.Context, alertID, userID string, at time.Time) (bool, error) {
	return s.transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusSuppressed},
		map[string]interface{}{
			"status":          models.AlertStatusAcknowledged,
			"acknowledged_at": at.UTC(),
			"acknowledged_by": userID,
		})
}

// ResolveAlert closes any alert that is not already resolved.
func (s *Store) ResolveAlert(ctx context.Context, alertID, userID string, at time.Time) (bool, error) {
	return s.transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusSuppressed},
		map[string]interface{}{
			"status":      models.AlertStatusResolved,
			"resolved_at": at.UTC(),
			"resolved_by": userID,
		})
}

// SuppressAlert silences an open alert until the given instant. Re-suppressing extends the window.
func (s *Store) SuppressAlert(ctx context.Context, alertID string, until time.Time, userID string) (bool, error) {
	return s.transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusSuppressed},
		map[string]interface{}{
			"status":           models.AlertStatusSuppressed,
			"suppressed_until": until.UTC(),
			"suppressed_by":    userID,
		})
}

// AlertStatistics aggregates a team's alerts created at or after since.
func (s *Store) AlertStatistics(ctx context.Context, teamID string, since time.Time, hours int) (*models.AlertStatistics, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Select("id", "severity", "status", "created_at", "acknowledged_at", "resolved_at").
		Where("team_id = ? AND created_at >= ?", teamID, since.UTC()).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load alert statistics: %w", err)
	}

	stats := models.NewAlertStatistics(teamID, hours)
	var resolvedMinutes, ackMinutes float64
	var resolvedCount, ackCount int

	for _, a := range alerts {
		stats.Total++
		stats.BySeverity[a.Severity]++

		switch a.Status {
		case models.AlertStatusActive:
			stats.Active++
		case models.AlertStatusAcknowledged:
			stats.Acknowledged++
		case models.AlertStatusResolved:
			stats.Resolved++
		case models.AlertStatusSuppressed:
			stats.Suppressed++
		}

		if a.ResolvedAt != nil {
			resolvedMinutes += a.ResolvedAt.Sub(a.CreatedAt).Minutes()
			resolvedCount++
		}
		if a.AcknowledgedAt != nil {
			ackMinutes += a.AcknowledgedAt.Sub(a.CreatedAt).Minutes()
			ackCount++
		}
	}

	if resolvedCount > 0 {
		stats.AvgResolutionMinutes = resolvedMinutes / float64(resolvedCount)
	}
	if ackCount > 0 {
		stats.AvgAcknowledgeMinutes = ackMinutes / float64(ackCount)
	}

	return stats, nil
}
