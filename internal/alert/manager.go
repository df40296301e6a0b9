package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/notify"
	"github.com/alertrouter/internal/routing"
	"go.uber.org/zap"
)

const defaultStatisticsHours = 24

var (
	// ErrUnauthenticated is returned when a lifecycle change has no actor.
	ErrUnauthenticated = errors.New("an authenticated user is required")
	// ErrInvalidInput wraps rejected alerts, rules and suppression windows.
	ErrInvalidInput = errors.New("invalid input")
)

type Store interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID, userID string, at time.Time) (bool, error)
	ResolveAlert(ctx context.Context, alertID, userID string, at time.Time) (bool, error)
	SuppressAlert(ctx context.Context, alertID string, until time.Time, userID string) (bool, error)
	AlertStatistics(ctx context.Context, teamID string, since time.Time, hours int) (*models.AlertStatistics, error)
}

type Router interface {
	Route(ctx context.Context, alert *models.Alert) routing.RoutingResult
}

type Deliverer interface {
	Deliver(ctx context.Context, alert *models.Alert, channelIDs []string) []notify.DeliveryOutcome
}

// Outcome is what happened to an alert after it was stored.
type Outcome struct {
	Alert      *models.Alert            `json:"alert"`
	Routing    routing.RoutingResult    `json:"routing"`
	Deliveries []notify.DeliveryOutcome `json:"deliveries"`
}

// Service owns the alert lifecycle: ingest, routing hand-off and attributed state changes.
type Service struct {
	store     Store
	router    Router
	deliverer Deliverer
	log       *zap.Logger
	now       func() time.Time
}

func NewService(store Store, router Router, deliverer Deliverer, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		router:    router,
		deliverer: deliverer,
		log:       log.Named("alert"),
		now:       time.Now,
	}
}

// Ingest stores a new alert, routes it and delivers it to the routed channels.
func (s *Service) Ingest(ctx context.Context, alert *models.Alert) (*Outcome, error) {
	if err := validateAlert(alert); err != nil {
		return nil, err
	}

	alert.ID = ""
	alert.Status = models.AlertStatusActive
	if err := s.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	return s.Dispatch(ctx, alert), nil
}

// Dispatch routes an already stored alert and delivers it.
func (s *Service) Dispatch(ctx context.Context, alert *models.Alert) *Outcome {
	result := s.router.Route(ctx, alert)

	out := &Outcome{Alert: alert, Routing: result, Deliveries: []notify.DeliveryOutcome{}}
	if len(result.AssignedChannels) > 0 {
		out.Deliveries = s.deliverer.Deliver(ctx, alert, result.AssignedChannels)
	}
	return out
}

func (s *Service) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return s.store.GetAlert(ctx, id)
}

// Acknowledge returns false without error when the alert was already acknowledged or resolved.
func (s *Service) Acknowledge(ctx context.Context, alertID, actor string) (bool, error) {
	if actor == "" {
		return false, ErrUnauthenticated
	}

	ok, err := s.store.AcknowledgeAlert(ctx, alertID, actor, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	s.log.Info("acknowledge", zap.String("alert_id", alertID), zap.String("user_id", actor), zap.Bool("applied", ok))
	return ok, nil
}

func (s *Service) Resolve(ctx context.Context, alertID, actor string) (bool, error) {
	if actor == "" {
		return false, ErrUnauthenticated
	}

	ok, err := s.store.ResolveAlert(ctx, alertID, actor, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	s.log.Info("resolve", zap.String("alert_id", alertID), zap.String("user_id", actor), zap.Bool("applied", ok))
	return ok, nil
}

func (s *Service) Suppress(ctx context.Context, alertID string, until time.Time, actor string) (bool, error) {
	if actor == "" {
		return false, ErrUnauthenticated
	}
	if !until.After(s.now()) {
		return false, fmt.Errorf("%w: suppression must end in the future", ErrInvalidInput)
	}

	ok, err := s.store.SuppressAlert(ctx, alertID, until, actor)
	if err != nil {
		return false, fmt.Errorf("failed to suppress alert: %w", err)
	}
	s.log.Info("suppress",
		zap.String("alert_id", alertID),
		zap.String("user_id", actor),
		zap.Time("until", until),
		zap.Bool("applied", ok),
	)
	return ok, nil
}

// Statistics aggregates a team's alerts over the last hours hours (24 when hours <= 0).
func (s *Service) Statistics(ctx context.Context, teamID string, hours int) (*models.AlertStatistics, error) {
	if hours <= 0 {
		hours = defaultStatisticsHours
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	return s.store.AlertStatistics(ctx, teamID, since, hours)
}

func validateAlert(alert *models.Alert) error {
	var problems []string
	if alert.TeamID == "" {
		problems = append(problems, "team_id is required")
	}
	if !alert.Severity.Valid() {
		problems = append(problems, fmt.Sprintf("invalid severity: %q", alert.Severity))
	}
	if strings.TrimSpace(alert.Title) == "" {
		problems = append(problems, "title is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
