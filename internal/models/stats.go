package models

// AlertStatistics aggregates a team's alerts over a time window. Every field is zero
// (and every severity present) when the window holds no alerts.
type AlertStatistics struct {
	TeamID                string             `json:"team_id"`
	Hours                 int                `json:"hours"`
	Total                 int64              `json:"total"`
	Active                int64              `json:"active"`
	Acknowledged          int64              `json:"acknowledged"`
	Resolved              int64              `json:"resolved"`
	Suppressed            int64              `json:"suppressed"`
	BySeverity            map[Severity]int64 `json:"by_severity"`
	AvgResolutionMinutes  float64            `json:"avg_resolution_minutes"`
	AvgAcknowledgeMinutes float64            `json:"avg_acknowledge_minutes"`
}

// NewAlertStatistics returns the zero-valued statistics for a window.
func NewAlertStatistics(teamID string, hours int) *AlertStatistics {
	stats := &AlertStatistics{
		TeamID:     teamID,
		Hours:      hours,
		BySeverity: make(map[Severity]int64, len(Severities)),
	}
	for _, sev := range Severities {
		stats.BySeverity[sev] = 0
	}
	return stats
}
