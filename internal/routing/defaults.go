package routing

import "github.com/alertrouter/internal/models"

// maxDefaultAssignees caps how many people low and info alerts page under default routing.
const maxDefaultAssignees = 2

// Escalation describes how aggressively an unacknowledged alert should be re-notified.
type Escalation struct {
	InitialDelayMinutes       int `json:"initial_delay_minutes"`
	EscalationIntervalMinutes int `json:"escalation_interval_minutes"`
	MaxEscalationLevel        int `json:"max_escalation_level"`
}

var defaultEscalations = map[models.Severity]Escalation{
	models.SeverityCritical: {InitialDelayMinutes: 5, EscalationIntervalMinutes: 10, MaxEscalationLevel: 5},
	models.SeverityHigh:     {InitialDelayMinutes: 15, EscalationIntervalMinutes: 20, MaxEscalationLevel: 4},
	models.SeverityMedium:   {InitialDelayMinutes: 30, EscalationIntervalMinutes: 30, MaxEscalationLevel: 3},
	models.SeverityLow:      {InitialDelayMinutes: 60, EscalationIntervalMinutes: 60, MaxEscalationLevel: 2},
	models.SeverityInfo:     {InitialDelayMinutes: 120, EscalationIntervalMinutes: 120, MaxEscalationLevel: 1},
}

// DefaultEscalation returns the fixed escalation for a severity. Unknown severities get the
// info policy.
func DefaultEscalation(sev models.Severity) Escalation {
	if esc, ok := defaultEscalations[sev]; ok {
		return esc
	}
	return defaultEscalations[models.SeverityInfo]
}

func ruleEscalation(rule *models.SeverityRoutingRule) Escalation {
	return Escalation{
		InitialDelayMinutes:       rule.InitialDelayMinutes,
		EscalationIntervalMinutes: rule.EscalationIntervalMinutes,
		MaxEscalationLevel:        rule.MaxEscalationLevel,
	}
}

// defaultAssignees picks team members by role for a severity, keeping membership order.
func defaultAssignees(sev models.Severity, members []models.TeamMember) []string {
	eligible := func(models.TeamRole) bool { return true }
	limit := 0

	switch sev {
	case models.SeverityCritical, models.SeverityHigh:
		eligible = func(r models.TeamRole) bool {
			return r == models.TeamRoleOwner || r == models.TeamRoleAdmin
		}
	case models.SeverityMedium:
	default:
		eligible = func(r models.TeamRole) bool {
			return r == models.TeamRoleMember || r == models.TeamRoleAdmin
		}
		limit = maxDefaultAssignees
	}

	users := make([]string, 0, len(members))
	for _, m := range members {
		if !eligible(m.Role) {
			continue
		}
		users = append(users, m.UserID)
		if limit > 0 && len(users) == limit {
			break
		}
	}
	return users
}
