package alert

import (
	"context"
	"time"

	"github.com/alertrouter/internal/metrics"
	"github.com/alertrouter/internal/models"
	"go.uber.org/zap"
)

type EvaluationStore interface {
	EnabledAlertRules(ctx context.Context) ([]models.AlertRule, error)
	EvaluateAlertRule(ctx context.Context, ruleID string, now time.Time) (*models.Alert, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert) *Outcome
}

type RuleFailure struct {
	RuleID string `json:"rule_id"`
	Error  string `json:"error"`
}

// BatchResult summarizes one pass over every enabled rule.
type BatchResult struct {
	Evaluated int           `json:"evaluated"`
	Triggered int           `json:"triggered"`
	Failed    int           `json:"failed"`
	AlertIDs  []string      `json:"alert_ids"`
	Failures  []RuleFailure `json:"failures"`
	Error     string        `json:"error,omitempty"`
}

// RuleEvaluator runs every enabled alert rule and hands triggered alerts to the dispatcher.
type RuleEvaluator struct {
	store      EvaluationStore
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewRuleEvaluator(store EvaluationStore, dispatcher Dispatcher, log *zap.Logger) *RuleEvaluator {
	return &RuleEvaluator{
		store:      store,
		dispatcher: dispatcher,
		log:        log.Named("evaluator"),
		now:        time.Now,
	}
}

// EvaluateAllAlertRules evaluates rules one at a time. A failing rule is logged and counted;
// the batch always runs to the end.
func (e *RuleEvaluator) EvaluateAllAlertRules(ctx context.Context) BatchResult {
	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	result := BatchResult{AlertIDs: []string{}, Failures: []RuleFailure{}}

	rules, err := e.store.EnabledAlertRules(ctx)
	if err != nil {
		e.log.Error("failed to load alert rules", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			result.Error = ctx.Err().Error()
			break
		}

		result.Evaluated++
		alert, err := e.store.EvaluateAlertRule(ctx, rule.ID, e.now())
		if err != nil {
			e.log.Warn("alert rule evaluation failed", zap.String("rule_id", rule.ID), zap.Error(err))
			metrics.RuleEvaluations.WithLabelValues("error").Inc()
			result.Failed++
			result.Failures = append(result.Failures, RuleFailure{RuleID: rule.ID, Error: err.Error()})
			continue
		}
		if alert == nil {
			metrics.RuleEvaluations.WithLabelValues("ok").Inc()
			continue
		}

		metrics.RuleEvaluations.WithLabelValues("triggered").Inc()
		result.Triggered++
		result.AlertIDs = append(result.AlertIDs, alert.ID)

		out := e.dispatcher.Dispatch(ctx, alert)
		e.log.Info("alert triggered",
			zap.String("rule_id", rule.ID),
			zap.String("alert_id", alert.ID),
			zap.String("reason", string(out.Routing.AssignmentReason)),
			zap.Int("deliveries", len(out.Deliveries)),
		)
	}

	return result
}
