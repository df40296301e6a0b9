package channel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/alertrouter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestValidate(t *testing.T) {
	manyRecipients := make([]string, 51)
	for i := range manyRecipients {
		manyRecipients[i] = fmt.Sprintf("user%d@example.com", i)
	}

	tests := []struct {
		name         string
		channelType  models.ChannelType
		config       any
		valid        bool
		errContains  string
		warnContains string
	}{
		{
			name:        "email without recipients",
			channelType: models.ChannelTypeEmail,
			config:      map[string]any{"recipients": []string{}},
			errContains: "recipient",
		},
		{
			name:        "email with bad address",
			channelType: models.ChannelTypeEmail,
			config:      map[string]any{"recipients": []string{"ok@example.com", "nope"}},
			errContains: "recipients[1]",
		},
		{
			name:         "email with many recipients warns",
			channelType:  models.ChannelTypeEmail,
			config:       map[string]any{"recipients": manyRecipients},
			valid:        true,
			warnContains: "50",
		},
		{
			name:        "webhook valid",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com/hook", "method": "PATCH"},
			valid:       true,
		},
		{
			name:        "webhook missing url",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{},
			errContains: "url is required",
		},
		{
			name:        "webhook bad method",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com", "method": "GET"},
			errContains: "method",
		},
		{
			name:        "webhook bearer without token",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com", "authentication": map[string]any{"type": "bearer"}},
			errContains: "token",
		},
		{
			name:        "webhook basic without password",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com", "authentication": map[string]any{"type": "basic", "username": "u"}},
			errContains: "password",
		},
		{
			name:        "webhook api key without header",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com", "authentication": map[string]any{"type": "api_key", "api_key_value": "v"}},
			errContains: "api_key_header",
		},
		{
			name:        "webhook unknown auth",
			channelType: models.ChannelTypeWebhook,
			config:      map[string]any{"url": "https://example.com", "authentication": map[string]any{"type": "oauth"}},
			errContains: "oauth",
		},
		{
			name:         "slack non-standard host warns",
			channelType:  models.ChannelTypeSlack,
			config:       map[string]any{"webhook_url": "https://chat.example.com/hook"},
			valid:        true,
			warnContains: "hooks.slack.com",
		},
		{
			name:         "slack channel without prefix warns",
			channelType:  models.ChannelTypeSlack,
			config:       map[string]any{"webhook_url": "https://hooks.slack.com/services/T/B/X", "channel": "alerts"},
			valid:        true,
			warnContains: "channel",
		},
		{
			name:        "slack missing url",
			channelType: models.ChannelTypeSlack,
			config:      map[string]any{"channel": "#alerts"},
			errContains: "webhook_url",
		},
		{
			name:        "sms invalid number",
			channelType: models.ChannelTypeSMS,
			config:      map[string]any{"phone_numbers": []string{"12345"}, "provider": "twilio", "provider_config": map[string]any{"account_sid": "AC1"}},
			errContains: "phone_numbers[0]",
		},
		{
			name:        "sms formatted number accepted",
			channelType: models.ChannelTypeSMS,
			config:      map[string]any{"phone_numbers": []string{"+1 (415) 555-0100"}, "provider": "aws_sns", "provider_config": map[string]any{"region": "us-east-1"}},
			valid:       true,
		},
		{
			name:        "sms unknown provider",
			channelType: models.ChannelTypeSMS,
			config:      map[string]any{"phone_numbers": []string{"+14155550100"}, "provider": "carrier-pigeon", "provider_config": map[string]any{"k": "v"}},
			errContains: "carrier-pigeon",
		},
		{
			name:        "sms missing provider config",
			channelType: models.ChannelTypeSMS,
			config:      map[string]any{"phone_numbers": []string{"+14155550100"}, "provider": "twilio"},
			errContains: "provider_config",
		},
		{
			name:        "push needs nothing",
			channelType: models.ChannelTypePush,
			config:      map[string]any{},
			valid:       true,
		},
		{
			name:        "in_app needs nothing",
			channelType: models.ChannelTypeInApp,
			config:      nil,
			valid:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.channelType, mustJSON(t, tt.config))
			assert.Equal(t, tt.valid, res.IsValid, "errors: %v", res.Errors)
			if tt.errContains != "" {
				assert.True(t, containsAny(res.Errors, tt.errContains), "errors %v missing %q", res.Errors, tt.errContains)
			}
			if tt.warnContains != "" {
				assert.True(t, containsAny(res.Warnings, tt.warnContains), "warnings %v missing %q", res.Warnings, tt.warnContains)
			}
		})
	}
}

func TestValidateUnsupportedType(t *testing.T) {
	res := Validate("fax", []byte(`{}`))
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "fax")
}

func TestValidateMalformedPayload(t *testing.T) {
	res := Validate(models.ChannelTypeEmail, []byte(`{"recipients": "not-a-list"}`))
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 1)
}

func TestValidateIsPure(t *testing.T) {
	raw := []byte(`{"phone_numbers":["+1 415-555-0100","bad"],"provider":"twilio","provider_config":{"a":"b"}}`)
	original := bytes.Clone(raw)

	first := Validate(models.ChannelTypeSMS, raw)
	second := Validate(models.ChannelTypeSMS, raw)

	assert.Equal(t, first, second)
	assert.Equal(t, original, raw)
}

func containsAny(list []string, needle string) bool {
	for _, s := range list {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
