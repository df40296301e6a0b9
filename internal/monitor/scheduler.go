package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/alertrouter/internal/alert"
	"go.uber.org/zap"
)

const defaultInterval = time.Minute

type Evaluator interface {
	EvaluateAllAlertRules(ctx context.Context) alert.BatchResult
}

// Stats are the scheduler's running totals.
type Stats struct {
	Runs        uint64        `json:"runs"`
	Triggered   uint64        `json:"triggered"`
	Failed      uint64        `json:"failed"`
	LastRun     time.Time     `json:"last_run"`
	LastElapsed time.Duration `json:"last_elapsed"`
}

// Scheduler runs batch rule evaluation on a fixed interval until stopped.
type Scheduler struct {
	evaluator Evaluator
	interval  time.Duration
	log       *zap.Logger

	mutex   sync.RWMutex
	stats   Stats
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewScheduler(evaluator Evaluator, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		log:       log.Named("scheduler"),
	}
}

// Start runs one evaluation immediately and then one per interval in the background.
func (s *Scheduler) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	s.log.Info("evaluation scheduler started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for an in-flight evaluation to finish.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mutex.Unlock()

	cancel()
	<-done
	s.log.Info("evaluation scheduler stopped")
}

func (s *Scheduler) Stats() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stats
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	result := s.evaluator.EvaluateAllAlertRules(ctx)
	elapsed := time.Since(start)

	s.mutex.Lock()
	s.stats.Runs++
	s.stats.Triggered += uint64(result.Triggered)
	s.stats.Failed += uint64(result.Failed)
	s.stats.LastRun = start
	s.stats.LastElapsed = elapsed
	s.mutex.Unlock()

	if result.Error != "" {
		s.log.Error("rule evaluation pass failed", zap.String("error", result.Error))
		return
	}
	s.log.Debug("rule evaluation pass complete",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("triggered", result.Triggered),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", elapsed),
	)
}
