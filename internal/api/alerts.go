package api

import (
	"net/http"
	"time"

	"github.com/alertrouter/internal/auth"
	"github.com/alertrouter/internal/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) createAlert(c *gin.Context) {
	var a models.Alert
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.deps.Alerts.Ingest(c.Request.Context(), &a)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) getAlert(c *gin.Context) {
	a, err := s.deps.Alerts.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	ok, err := s.deps.Alerts.Acknowledge(c.Request.Context(), c.Param("id"), c.GetString(auth.ContextUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": ok})
}

func (s *Server) resolveAlert(c *gin.Context) {
	ok, err := s.deps.Alerts.Resolve(c.Request.Context(), c.Param("id"), c.GetString(auth.ContextUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": ok})
}

// suppressAlert accepts either an absolute "until" or "duration_minutes".
func (s *Server) suppressAlert(c *gin.Context) {
	var req struct {
		Until           *time.Time `json:"until"`
		DurationMinutes int        `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var until time.Time
	switch {
	case req.Until != nil:
		until = *req.Until
	case req.DurationMinutes > 0:
		until = time.Now().Add(time.Duration(req.DurationMinutes) * time.Minute)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "until or duration_minutes is required"})
		return
	}

	ok, err := s.deps.Alerts.Suppress(c.Request.Context(), c.Param("id"), until, c.GetString(auth.ContextUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppressed": ok, "until": until.UTC()})
}

func (s *Server) alertStats(c *gin.Context) {
	stats, err := s.deps.Alerts.Statistics(c.Request.Context(), c.Param("team_id"), queryInt(c, "hours"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) listAlertRules(c *gin.Context) {
	rules, err := s.deps.Rules.ListRules(c.Request.Context(), c.Param("team_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (s *Server) createAlertRule(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID = ""
	rule.TeamID = c.Param("team_id")

	if err := s.deps.Rules.CreateRule(c.Request.Context(), &rule); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) evaluateRules(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Evaluator.EvaluateAllAlertRules(c.Request.Context()))
}
