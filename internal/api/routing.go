package api

import (
	"fmt"
	"net/http"

	"github.com/alertrouter/internal/alert"
	"github.com/alertrouter/internal/models"
	"github.com/gin-gonic/gin"
)

func validateRoutingRule(rule *models.SeverityRoutingRule) error {
	if !rule.Severity.Valid() {
		return fmt.Errorf("%w: invalid severity: %q", alert.ErrInvalidInput, rule.Severity)
	}
	if rule.InitialDelayMinutes < 0 || rule.EscalationIntervalMinutes < 0 || rule.MaxEscalationLevel < 0 {
		return fmt.Errorf("%w: escalation values must not be negative", alert.ErrInvalidInput)
	}
	return nil
}

func (s *Server) listRoutingRules(c *gin.Context) {
	rules, err := s.deps.Routing.ListRoutingRules(c.Request.Context(), c.Param("team_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (s *Server) createRoutingRule(c *gin.Context) {
	var rule models.SeverityRoutingRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID = ""
	rule.TeamID = c.Param("team_id")

	if err := validateRoutingRule(&rule); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.deps.Routing.CreateRoutingRule(c.Request.Context(), &rule); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// updateRoutingRule binds the body over the stored rule, so omitted fields keep their values.
func (s *Server) updateRoutingRule(c *gin.Context) {
	rule, err := s.deps.Routing.GetRoutingRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	id, teamID := rule.ID, rule.TeamID

	if err := c.ShouldBindJSON(rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule.ID, rule.TeamID = id, teamID

	if err := validateRoutingRule(rule); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.deps.Routing.UpdateRoutingRule(c.Request.Context(), rule); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) deleteRoutingRule(c *gin.Context) {
	if err := s.deps.Routing.DeleteRoutingRule(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "routing rule deleted successfully"})
}
