package models

import (
	"time"

	"gorm.io/datatypes"
)

type Operator string

const (
	OperatorGT  Operator = ">"
	OperatorLT  Operator = "<"
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
	OperatorEQ  Operator = "=="
)

func (o Operator) Valid() bool {
	switch o {
	case OperatorGT, OperatorLT, OperatorGTE, OperatorLTE, OperatorEQ:
		return true
	default:
		return false
	}
}

// Compare reports whether current violates threshold under the operator.
func (o Operator) Compare(current, threshold float64) bool {
	switch o {
	case OperatorGT:
		return current > threshold
	case OperatorLT:
		return current < threshold
	case OperatorGTE:
		return current >= threshold
	case OperatorLTE:
		return current <= threshold
	case OperatorEQ:
		return current == threshold
	default:
		return false
	}
}

// AlertRule is the metric condition that produces an Alert for a team.
type AlertRule struct {
	Model
	TeamID          string     `gorm:"index;not null" json:"team_id"`
	Name            string     `gorm:"not null" json:"name"`
	Description     string     `json:"description"`
	MetricName      string     `gorm:"not null" json:"metric_name"`
	Operator        Operator   `gorm:"not null" json:"operator"`
	Threshold       float64    `gorm:"not null" json:"threshold"`
	Severity        Severity   `gorm:"not null" json:"severity"`
	CooldownMinutes int        `json:"cooldown_minutes"`
	Enabled         bool       `json:"enabled"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	TriggerCount    int        `gorm:"default:0" json:"trigger_count"`
}

// MetricSample is written by the external metric collector.
type MetricSample struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	TeamID     string            `gorm:"index:idx_sample_team_metric;not null" json:"team_id"`
	MetricName string            `gorm:"index:idx_sample_team_metric;not null" json:"metric_name"`
	Value      float64           `json:"value"`
	Tags       datatypes.JSONMap `json:"tags,omitempty"`
	RecordedAt time.Time         `gorm:"index" json:"recorded_at"`
}
