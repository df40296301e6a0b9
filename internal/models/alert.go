package models

import (
	"time"

	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	default:
		return false
	}
}

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusSuppressed   AlertStatus = "suppressed"
)

type Alert struct {
	Model
	TeamID          string                                `gorm:"index;not null" json:"team_id"`
	RuleID          *string                               `gorm:"index" json:"rule_id,omitempty"`
	Severity        Severity                              `gorm:"index;not null" json:"severity"`
	Title           string                                `gorm:"not null" json:"title"`
	MetricName      string                                `json:"metric_name,omitempty"`
	MetricValue     *float64                              `json:"metric_value,omitempty"`
	Context         datatypes.JSONMap                     `json:"context,omitempty"`
	Tags            datatypes.JSONType[map[string]string] `json:"tags,omitempty"`
	Status          AlertStatus                           `gorm:"index;not null;default:active" json:"status"`
	AcknowledgedAt  *time.Time                            `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string                                `json:"acknowledged_by,omitempty"`
	ResolvedAt      *time.Time                            `json:"resolved_at,omitempty"`
	ResolvedBy      string                                `json:"resolved_by,omitempty"`
	SuppressedUntil *time.Time                            `json:"suppressed_until,omitempty"`
	SuppressedBy    string                                `json:"suppressed_by,omitempty"`
}

// TagMap returns the alert tags, never nil.
func (a *Alert) TagMap() map[string]string {
	tags := a.Tags.Data()
	if tags == nil {
		return map[string]string{}
	}
	return tags
}

type AssignmentReason string

const (
	AssignmentReasonSeverityRouting AssignmentReason = "severity_routing"
	AssignmentReasonOnCallSchedule  AssignmentReason = "on_call_schedule"
	AssignmentReasonDefaultRouting  AssignmentReason = "default_routing"
	AssignmentReasonNoAssignment    AssignmentReason = "no_assignment"
)

// AlertAssignment rows are append-only; one per responder per escalation level.
type AlertAssignment struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	AlertID          string           `gorm:"index;not null" json:"alert_id"`
	AssignedTo       string           `gorm:"index;not null" json:"assigned_to"`
	AssignmentReason AssignmentReason `gorm:"not null" json:"assignment_reason"`
	AssignmentLevel  int              `gorm:"not null;default:1" json:"assignment_level"`
	CreatedAt        time.Time        `json:"created_at"`
}
