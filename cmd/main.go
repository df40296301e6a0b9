package main

import (
	"context"
	"fmt"

	"github.com/alertrouter/internal/alert"
	"github.com/alertrouter/internal/api"
	"github.com/alertrouter/internal/auth"
	"github.com/alertrouter/internal/channel"
	"github.com/alertrouter/internal/config"
	"github.com/alertrouter/internal/database"
	"github.com/alertrouter/internal/logger"
	"github.com/alertrouter/internal/models"
	"github.com/alertrouter/internal/monitor"
	"github.com/alertrouter/internal/notify"
	"github.com/alertrouter/internal/routing"
	"github.com/alertrouter/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			config.LoadConfig,
			NewLogger,
			NewDatabase,
			store.New,
			NewDriver,
			NewDispatcher,
			NewEngine,
			NewService,
			NewRuleManager,
			NewRuleEvaluator,
			NewRegistry,
			NewAuthenticator,
			NewServer,
		),
		fx.Invoke(SeedAdmin, StartServer, StartScheduler),
	)
	app.Run()
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Log.Level)
}

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return database.Close(db)
		},
	})
	return db, nil
}

func NewDriver(cfg *config.Config, s *store.Store, log *zap.Logger) *notify.Driver {
	email := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})
	sms := notify.NewTwilioSender(cfg.SMS.TwilioBaseURL, cfg.Delivery.Timeout)

	return notify.NewDriver(notify.DriverConfig{
		Timeout:   cfg.Delivery.Timeout,
		UserAgent: cfg.Delivery.UserAgent,
	}, email, sms, s, log)
}

func NewDispatcher(s *store.Store, driver *notify.Driver, log *zap.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(s, driver, log)
}

func NewEngine(cfg *config.Config, s *store.Store, log *zap.Logger) *routing.Engine {
	return routing.NewEngine(s, s, cfg.Location(), log)
}

func NewService(s *store.Store, engine *routing.Engine, dispatcher *notify.Dispatcher, log *zap.Logger) *alert.Service {
	return alert.NewService(s, engine, dispatcher, log)
}

func NewRuleManager(s *store.Store) *alert.RuleManager {
	return alert.NewRuleManager(s)
}

func NewRuleEvaluator(s *store.Store, svc *alert.Service, log *zap.Logger) *alert.RuleEvaluator {
	return alert.NewRuleEvaluator(s, svc, log)
}

func NewRegistry(s *store.Store, driver *notify.Driver, log *zap.Logger) *channel.Registry {
	return channel.NewRegistry(s, driver, log)
}

func NewAuthenticator(cfg *config.Config, s *store.Store) *auth.Authenticator {
	return auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, s)
}

func NewServer(
	cfg *config.Config,
	authn *auth.Authenticator,
	registry *channel.Registry,
	svc *alert.Service,
	rules *alert.RuleManager,
	evaluator *alert.RuleEvaluator,
	s *store.Store,
	log *zap.Logger,
) *api.Server {
	return api.NewServer(cfg.Server.Port, api.Dependencies{
		Auth:      authn,
		Channels:  registry,
		Alerts:    svc,
		Rules:     rules,
		Evaluator: evaluator,
		Routing:   s,
	}, log)
}

// SeedAdmin creates the first admin account on an empty database.
func SeedAdmin(cfg *config.Config, s *store.Store, log *zap.Logger) error {
	ctx := context.Background()
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := &models.User{
		Username: "admin",
		Role:     models.RoleAdmin,
		Email:    "admin@localhost",
		IsActive: true,
	}
	if err := admin.SetPassword(cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.CreateUser(ctx, admin); err != nil {
		return err
	}
	log.Warn("created default admin user; change its password", zap.String("username", admin.Username))
	return nil
}

func StartServer(lc fx.Lifecycle, server *api.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			server.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

func StartScheduler(lc fx.Lifecycle, cfg *config.Config, evaluator *alert.RuleEvaluator, log *zap.Logger) {
	if !cfg.Evaluation.Enabled {
		log.Info("rule evaluation scheduler disabled")
		return
	}

	scheduler := monitor.NewScheduler(evaluator, cfg.Evaluation.Interval, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}
