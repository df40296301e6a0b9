package channel

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/alertrouter/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	maxEmailRecipients = 50
	slackHookPrefix    = "https://hooks.slack.com/"
)

var (
	validate = validator.New()

	phoneStripper = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

	allowedWebhookMethods = map[string]bool{"POST": true, "PUT": true, "PATCH": true}
	allowedSMSProviders   = map[string]bool{"twilio": true, "aws_sns": true}
)

// ValidationResult carries every finding for a configuration. Warnings never make it invalid.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidationError is returned when a channel is rejected before it is stored.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return "invalid channel configuration: " + strings.Join(e.Result.Errors, "; ")
}

// Validate checks a raw configuration payload for the given channel type. It performs no
// I/O and never modifies raw.
func Validate(channelType models.ChannelType, raw []byte) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	cfg, err := models.DecodeChannelConfig(channelType, raw)
	if err != nil {
		var unsupported *models.ErrUnsupportedChannelType
		if errors.As(err, &unsupported) {
			result.addError("unsupported channel type: %s", channelType)
		} else {
			result.addError("%v", err)
		}
		return result
	}

	switch c := cfg.(type) {
	case models.EmailConfig:
		validateEmail(c, &result)
	case models.WebhookConfig:
		validateWebhook(c, &result)
	case models.SlackConfig:
		validateSlack(c, &result)
	case models.SMSConfig:
		validateSMS(c, &result)
	case models.PushConfig, models.InAppConfig:
		// nothing required
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func validateEmail(c models.EmailConfig, r *ValidationResult) {
	if len(c.Recipients) == 0 {
		r.addError("at least one recipient is required")
		return
	}
	for i, addr := range c.Recipients {
		if err := validate.Var(strings.TrimSpace(addr), "required,email"); err != nil {
			r.addError("recipients[%d] is not a valid email address: %q", i, addr)
		}
	}
	if len(c.Recipients) > maxEmailRecipients {
		r.addWarning("%d recipients configured; more than %d may be rejected by the mail server", len(c.Recipients), maxEmailRecipients)
	}
}

func validateWebhook(c models.WebhookConfig, r *ValidationResult) {
	if strings.TrimSpace(c.URL) == "" {
		r.addError("url is required")
	} else if !isHTTPURL(c.URL) {
		r.addError("url is not a valid http(s) URL: %q", c.URL)
	}

	if c.Method != "" && !allowedWebhookMethods[strings.ToUpper(c.Method)] {
		r.addError("method must be one of POST, PUT, PATCH; got %q", c.Method)
	}

	auth := c.Authentication
	if auth == nil {
		return
	}
	switch auth.Type {
	case "bearer":
		if auth.Token == "" {
			r.addError("authentication.token is required for bearer authentication")
		}
	case "basic":
		if auth.Username == "" {
			r.addError("authentication.username is required for basic authentication")
		}
		if auth.Password == "" {
			r.addError("authentication.password is required for basic authentication")
		}
	case "api_key":
		if auth.APIKeyHeader == "" {
			r.addError("authentication.api_key_header is required for api_key authentication")
		}
		if auth.APIKeyValue == "" {
			r.addError("authentication.api_key_value is required for api_key authentication")
		}
	default:
		r.addError("unsupported authentication type: %q", auth.Type)
	}
}

func validateSlack(c models.SlackConfig, r *ValidationResult) {
	if strings.TrimSpace(c.WebhookURL) == "" {
		r.addError("webhook_url is required")
	} else if !isHTTPURL(c.WebhookURL) {
		r.addError("webhook_url is not a valid URL: %q", c.WebhookURL)
	} else if !strings.HasPrefix(c.WebhookURL, slackHookPrefix) {
		r.addWarning("webhook_url does not look like a Slack incoming webhook (expected %s...)", slackHookPrefix)
	}

	if c.Channel != "" && !strings.HasPrefix(c.Channel, "#") && !strings.HasPrefix(c.Channel, "@") {
		r.addWarning("channel should start with # or @; got %q", c.Channel)
	}
}

func validateSMS(c models.SMSConfig, r *ValidationResult) {
	if len(c.PhoneNumbers) == 0 {
		r.addError("at least one phone number is required")
	}
	for i, phone := range c.PhoneNumbers {
		if err := validate.Var(NormalizePhone(phone), "required,e164"); err != nil {
			r.addError("phone_numbers[%d] is not a valid E.164 number: %q", i, phone)
		}
	}

	switch {
	case c.Provider == "":
		r.addError("provider is required")
	case !allowedSMSProviders[c.Provider]:
		r.addError("unsupported sms provider: %q", c.Provider)
	}

	if len(c.ProviderConfig) == 0 {
		r.addError("provider_config is required")
	}
}

// NormalizePhone strips the formatting characters people commonly type into phone numbers.
func NormalizePhone(phone string) string {
	return phoneStripper.Replace(phone)
}

func isHTTPURL(raw string) bool {
	if err := validate.Var(raw, "url"); err != nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
