package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alertrouter/internal/models"
	"gopkg.in/gomail.v2"
)

// ErrProviderUnavailable is returned for SMS providers this build cannot reach.
var ErrProviderUnavailable = errors.New("sms provider not available")

type EmailMessage struct {
	To       []string
	Subject  string
	HTML     string
	Template string // html/template source rendered with Metadata when HTML is empty
	Metadata map[string]any
}

type SMSMessage struct {
	To             string
	Message        string
	Provider       string
	ProviderConfig map[string]any
	Metadata       map[string]any
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer mailDialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) SendEmail(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return errors.New("email has no recipients")
	}

	body := msg.HTML
	if body == "" && msg.Template != "" {
		rendered, err := renderTemplate(msg.Template, msg.Metadata)
		if err != nil {
			return err
		}
		body = rendered
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func renderTemplate(src string, data map[string]any) (string, error) {
	tmpl, err := template.New("email").Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid email template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

// TwilioSender sends SMS through the Twilio Messages REST API.
type TwilioSender struct {
	baseURL string
	client  *http.Client
}

func NewTwilioSender(baseURL string, timeout time.Duration) *TwilioSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TwilioSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *TwilioSender) SendSMS(ctx context.Context, msg SMSMessage) error {
	switch msg.Provider {
	case "", "twilio":
	default:
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, msg.Provider)
	}

	sid := configString(msg.ProviderConfig, "account_sid")
	token := configString(msg.ProviderConfig, "auth_token")
	from := configString(msg.ProviderConfig, "from_number")
	if sid == "" || token == "" || from == "" {
		return errors.New("twilio provider_config requires account_sid, auth_token and from_number")
	}

	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", from)
	form.Set("Body", msg.Message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(sid))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(sid, token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	if apiErr.Message != "" {
		return fmt.Errorf("twilio returned HTTP %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("twilio returned HTTP %d", resp.StatusCode)
}

func configString(cfg map[string]any, key string) string {
	v, ok := cfg[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func alertEmail(c models.EmailConfig, alert *models.Alert) EmailMessage {
	meta := map[string]any{
		"alert_id":    alert.ID,
		"team_id":     alert.TeamID,
		"severity":    string(alert.Severity),
		"title":       alert.Title,
		"metric_name": alert.MetricName,
		"status":      string(alert.Status),
		"created_at":  alert.CreatedAt.UTC().Format(time.RFC3339),
	}
	if alert.MetricValue != nil {
		meta["metric_value"] = *alert.MetricValue
	}

	msg := EmailMessage{
		To:       c.Recipients,
		Subject:  subject(c.SubjectPrefix, fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)),
		Template: c.Template,
		Metadata: meta,
	}
	if msg.Template == "" {
		msg.HTML = defaultAlertHTML(alert)
	}
	return msg
}

func defaultAlertHTML(alert *models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", template.HTMLEscapeString(alert.Title))
	fmt.Fprintf(&b, "<p>Severity: %s</p>", alert.Severity)
	if alert.MetricName != "" {
		fmt.Fprintf(&b, "<p>Metric: %s</p>", template.HTMLEscapeString(alert.MetricName))
	}
	if alert.MetricValue != nil {
		fmt.Fprintf(&b, "<p>Current Value: %.2f</p>", *alert.MetricValue)
	}
	fmt.Fprintf(&b, "<p>Time: %s</p>", alert.CreatedAt.UTC().Format(time.RFC3339))
	return b.String()
}

func alertSMSText(alert *models.Alert) string {
	text := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)
	if alert.MetricValue != nil {
		text += fmt.Sprintf(" (%s=%.2f)", alert.MetricName, *alert.MetricValue)
	}
	return text
}
