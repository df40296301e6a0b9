package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alertrouter/internal/metrics"
	"github.com/alertrouter/internal/models"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "alertrouter/1.0"
	testMessage      = "This is a test notification from alertrouter."
)

// TestResult reports the outcome of a synthetic delivery over a channel.
type TestResult struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	Details        map[string]any `json:"details,omitempty"`
}

// Pinger answers a reachability check. The store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type DriverConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Driver sends test and alert messages over every channel type.
type Driver struct {
	email     EmailSender
	sms       SMSSender
	pinger    Pinger
	client    *http.Client
	userAgent string
	log       *zap.Logger
	now       func() time.Time
}

func NewDriver(cfg DriverConfig, email EmailSender, sms SMSSender, pinger Pinger, log *zap.Logger) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Driver{
		email:     email,
		sms:       sms,
		pinger:    pinger,
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		log:       log.Named("notify"),
		now:       time.Now,
	}
}

// Test sends a test message over ch. Failures, including panics inside a transport, are
// reported in the result and never returned as errors.
func (d *Driver) Test(ctx context.Context, ch *models.NotificationChannel) (result TestResult) {
	if ch == nil {
		return TestResult{Success: false, Message: "no channel to test"}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("channel test panicked", zap.String("channel_id", ch.ID), zap.Any("panic", r))
			result = TestResult{Success: false, Message: fmt.Sprintf("channel test failed: %v", r)}
		}
		result.ResponseTimeMs = time.Since(start).Milliseconds()
		metrics.ChannelTests.WithLabelValues(string(ch.ChannelType), outcome(result.Success)).Inc()
	}()

	cfg, err := ch.Config()
	if err != nil {
		return TestResult{Success: false, Message: err.Error()}
	}

	switch c := cfg.(type) {
	case models.EmailConfig:
		return d.testEmail(ctx, ch, c)
	case models.SMSConfig:
		return d.testSMS(ctx, ch, c)
	case models.WebhookConfig:
		return d.testWebhook(ctx, ch, c)
	case models.SlackConfig:
		return d.testSlack(ctx, ch, c)
	case models.PushConfig, models.InAppConfig:
		return d.testReachability(ctx)
	default:
		return TestResult{Success: false, Message: fmt.Sprintf("unsupported channel type: %s", ch.ChannelType)}
	}
}

// Send delivers alert over ch.
func (d *Driver) Send(ctx context.Context, ch *models.NotificationChannel, alert *models.Alert) error {
	cfg, err := ch.Config()
	if err != nil {
		return err
	}

	switch c := cfg.(type) {
	case models.EmailConfig:
		return d.email.SendEmail(ctx, alertEmail(c, alert))
	case models.SMSConfig:
		return d.sendSMS(ctx, c, alertSMSText(alert), map[string]any{"alert_id": alert.ID})
	case models.WebhookConfig:
		resp, err := d.postWebhook(ctx, c, alertPayload(ch, alert))
		if err != nil {
			return err
		}
		if !resp.ok() {
			return fmt.Errorf("webhook returned HTTP %d", resp.status)
		}
		return nil
	case models.SlackConfig:
		resp, err := d.postSlack(ctx, c, alertSlackMessage(alert))
		if err != nil {
			return err
		}
		if !resp.ok() {
			return fmt.Errorf("slack returned HTTP %d", resp.status)
		}
		return nil
	case models.PushConfig, models.InAppConfig:
		// The recorded Notification row is the in-app/push inbox entry.
		return d.pinger.Ping(ctx)
	default:
		return fmt.Errorf("unsupported channel type: %s", ch.ChannelType)
	}
}

func (d *Driver) testEmail(ctx context.Context, ch *models.NotificationChannel, c models.EmailConfig) TestResult {
	if len(c.Recipients) == 0 {
		return TestResult{Success: false, Message: "no recipients configured"}
	}

	msg := EmailMessage{
		To:      c.Recipients,
		Subject: subject(c.SubjectPrefix, "Test notification"),
		HTML:    fmt.Sprintf("<p>%s</p><p>Channel: %s</p>", testMessage, ch.Name),
		Metadata: map[string]any{
			"test":       true,
			"channel_id": ch.ID,
		},
	}
	if err := d.email.SendEmail(ctx, msg); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("failed to send test email: %v", err)}
	}

	return TestResult{
		Success: true,
		Message: fmt.Sprintf("test email sent to %d recipient(s)", len(c.Recipients)),
		Details: map[string]any{"recipients": len(c.Recipients)},
	}
}

func (d *Driver) testSMS(ctx context.Context, ch *models.NotificationChannel, c models.SMSConfig) TestResult {
	if len(c.PhoneNumbers) == 0 {
		return TestResult{Success: false, Message: "no phone numbers configured"}
	}

	meta := map[string]any{"test": true, "channel_id": ch.ID}
	if err := d.sendSMS(ctx, c, testMessage, meta); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("failed to send test sms: %v", err)}
	}

	return TestResult{
		Success: true,
		Message: fmt.Sprintf("test sms sent to %d number(s)", len(c.PhoneNumbers)),
		Details: map[string]any{"numbers": len(c.PhoneNumbers)},
	}
}

func (d *Driver) sendSMS(ctx context.Context, c models.SMSConfig, text string, meta map[string]any) error {
	for _, number := range c.PhoneNumbers {
		err := d.sms.SendSMS(ctx, SMSMessage{
			To:             number,
			Message:        text,
			Provider:       c.Provider,
			ProviderConfig: c.ProviderConfig,
			Metadata:       meta,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", number, err)
		}
	}
	return nil
}

func (d *Driver) testReachability(ctx context.Context) TestResult {
	if err := d.pinger.Ping(ctx); err != nil {
		return TestResult{Success: false, Message: fmt.Sprintf("notification store unreachable: %v", err)}
	}
	return TestResult{Success: true, Message: "notification store reachable"}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func subject(prefix, s string) string {
	if prefix == "" {
		return "[alertrouter] " + s
	}
	return prefix + " " + s
}
