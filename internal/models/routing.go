package models

import (
	"time"

	"gorm.io/datatypes"
)

// SeverityRoutingRule decides who and which channels receive a team's alerts of one severity.
// Lower Priority wins.
type SeverityRoutingRule struct {
	Model
	TeamID                    string                      `gorm:"index:idx_routing_team_severity;not null" json:"team_id"`
	Severity                  Severity                    `gorm:"index:idx_routing_team_severity;not null" json:"severity"`
	AssignedUsers             datatypes.JSONSlice[string] `json:"assigned_users"`
	AssignedChannels          datatypes.JSONSlice[string] `json:"assigned_channels"`
	InitialDelayMinutes       int                         `json:"initial_delay_minutes"`
	EscalationIntervalMinutes int                         `json:"escalation_interval_minutes"`
	MaxEscalationLevel        int                         `json:"max_escalation_level"`
	BusinessHoursOnly         bool                        `json:"business_hours_only"`
	WeekendEscalation         bool                        `json:"weekend_escalation"`
	AutoAcknowledgeMinutes    *int                        `json:"auto_acknowledge_minutes,omitempty"`
	AutoResolveMinutes        *int                        `json:"auto_resolve_minutes,omitempty"`
	Conditions                datatypes.JSONMap           `json:"conditions,omitempty"`
	Enabled                   bool                        `json:"enabled"`
	Priority                  int                         `gorm:"not null;default:0" json:"priority"`
}

// OnCallSchedule is one shift; an empty Severity covers every severity.
type OnCallSchedule struct {
	Model
	TeamID       string    `gorm:"index;not null" json:"team_id"`
	Severity     Severity  `json:"severity,omitempty"`
	ScheduleName string    `json:"schedule_name"`
	UserID       string    `gorm:"not null" json:"user_id"`
	BackupUserID *string   `json:"backup_user_id,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	StartsAt     time.Time `gorm:"index" json:"starts_at"`
	EndsAt       time.Time `gorm:"index" json:"ends_at"`
}

// OnCallUser is the resolved responder for a team and severity at an instant.
type OnCallUser struct {
	UserID       string  `json:"user_id"`
	IsPrimary    bool    `json:"is_primary"`
	ScheduleName string  `json:"schedule_name"`
	BackupUserID *string `json:"backup_user_id,omitempty"`
}
