package api

import (
	"net/http"

	"github.com/alertrouter/internal/auth"
	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

func (s *Server) validateChannel(c *gin.Context) {
	var req struct {
		ChannelType   models.ChannelType `json:"channel_type" binding:"required"`
		Configuration datatypes.JSON     `json:"configuration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, channel.Validate(req.ChannelType, req.Configuration))
}

func (s *Server) listChannels(c *gin.Context) {
	channels, err := s.deps.Channels.ListChannels(c.Request.Context(), c.Param("team_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (s *Server) createChannel(c *gin.Context) {
	var ch models.NotificationChannel
	if err := c.ShouldBindJSON(&ch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ch.ID = ""
	ch.TeamID = c.Param("team_id")
	ch.CreatedBy = c.GetString(auth.ContextUserID)

	result, err := s.deps.Channels.CreateChannel(c.Request.Context(), &ch)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"channel": ch, "warnings": result.Warnings})
}

func (s *Server) getChannel(c *gin.Context) {
	ch, err := s.deps.Channels.GetChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) updateChannel(c *gin.Context) {
	var u channel.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, result, err := s.deps.Channels.UpdateChannel(c.Request.Context(), c.Param("id"), u)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": ch, "warnings": result.Warnings})
}

func (s *Server) deleteChannel(c *gin.Context) {
	if err := s.deps.Channels.DeleteChannel(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "channel deleted successfully"})
}

func (s *Server) testChannel(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Channels.TestChannel(c.Request.Context(), c.Param("id")))
}

func (s *Server) toggleChannel(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := s.deps.Channels.ToggleChannel(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) duplicateChannel(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	// An empty body falls back to the default copy name.
	_ = c.ShouldBindJSON(&req)

	ch, err := s.deps.Channels.DuplicateChannel(c.Request.Context(), c.Param("id"), req.Name, c.GetString(auth.ContextUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

func (s *Server) channelStats(c *gin.Context) {
	stats, err := s.deps.Channels.GetChannelUsageStats(c.Request.Context(), c.Param("id"), queryInt(c, "days"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
