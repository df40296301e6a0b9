package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alertrouter/internal/alert"
	"github.com/alertrouter/internal/auth"
	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/metrics"
	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RoutingRuleStore interface {
	CreateRoutingRule(ctx context.Context, rule *models.SeverityRoutingRule) error
	UpdateRoutingRule(ctx context.Context, rule *models.SeverityRoutingRule) error
	GetRoutingRule(ctx context.Context, id string) (*models.SeverityRoutingRule, error)
	DeleteRoutingRule(ctx context.Context, id string) error
	ListRoutingRules(ctx context.Context, teamID string) ([]models.SeverityRoutingRule, error)
}

// Dependencies groups everything the HTTP layer calls into.
type Dependencies struct {
	Auth      *auth.Authenticator
	Channels  *channel.Registry
	Alerts    *alert.Service
	Rules     *alert.RuleManager
	Evaluator *alert.RuleEvaluator
	Routing   RoutingRuleStore
}

type Server struct {
	deps   Dependencies
	router *gin.Engine
	http   *http.Server
	log    *zap.Logger
}

func NewServer(port int, deps Dependencies, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		deps:   deps,
		router: gin.New(),
		log:    log.Named("api"),
	}
	server.router.Use(gin.Recovery(), server.observe())
	server.setupRoutes()

	server.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)

	api := s.router.Group("/api/v1")
	api.Use(s.deps.Auth.Middleware())
	write := auth.RequireRole(models.RoleAdmin, models.RoleUser)

	// Channels
	api.POST("/channels/validate", s.validateChannel)
	api.GET("/teams/:team_id/channels", s.listChannels)
	api.POST("/teams/:team_id/channels", write, s.createChannel)
	api.GET("/channels/:id", s.getChannel)
	api.PUT("/channels/:id", write, s.updateChannel)
	api.DELETE("/channels/:id", write, s.deleteChannel)
	api.POST("/channels/:id/test", write, s.testChannel)
	api.PUT("/channels/:id/toggle", write, s.toggleChannel)
	api.POST("/channels/:id/duplicate", write, s.duplicateChannel)
	api.GET("/channels/:id/stats", s.channelStats)

	// Routing rules
	api.GET("/teams/:team_id/routing-rules", s.listRoutingRules)
	api.POST("/teams/:team_id/routing-rules", auth.RequireRole(models.RoleAdmin), s.createRoutingRule)
	api.PUT("/routing-rules/:id", auth.RequireRole(models.RoleAdmin), s.updateRoutingRule)
	api.DELETE("/routing-rules/:id", auth.RequireRole(models.RoleAdmin), s.deleteRoutingRule)

	// Alerts
	api.POST("/alerts", write, s.createAlert)
	api.GET("/alerts/:id", s.getAlert)
	api.PUT("/alerts/:id/acknowledge", write, s.acknowledgeAlert)
	api.PUT("/alerts/:id/resolve", write, s.resolveAlert)
	api.PUT("/alerts/:id/suppress", write, s.suppressAlert)
	api.GET("/teams/:team_id/alerts/stats", s.alertStats)

	// Alert rules
	api.GET("/teams/:team_id/alert-rules", s.listAlertRules)
	api.POST("/teams/:team_id/alert-rules", auth.RequireRole(models.RoleAdmin), s.createAlertRule)
	api.POST("/alert-rules/evaluate", auth.RequireRole(models.RoleAdmin), s.evaluateRules)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// writeError maps service errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *channel.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "validation failed",
			"errors":   verr.Result.Errors,
			"warnings": verr.Result.Warnings,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, alert.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, alert.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := s.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
