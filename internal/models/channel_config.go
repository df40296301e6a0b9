package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChannelConfig is one of the typed configuration variants below. The variant is chosen by
// the channel's ChannelType, never by inspecting the payload.
type ChannelConfig interface {
	Type() ChannelType
}

type EmailConfig struct {
	Recipients    []string `json:"recipients"`
	SubjectPrefix string   `json:"subject_prefix,omitempty"`
	Template      string   `json:"template,omitempty"`
}

type WebhookAuth struct {
	Type         string `json:"type"`
	Token        string `json:"token,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	APIKeyHeader string `json:"api_key_header,omitempty"`
	APIKeyValue  string `json:"api_key_value,omitempty"`
}

type WebhookConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Authentication *WebhookAuth      `json:"authentication,omitempty"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
	IconEmoji  string `json:"icon_emoji,omitempty"`
}

type SMSConfig struct {
	PhoneNumbers   []string       `json:"phone_numbers"`
	Provider       string         `json:"provider"`
	ProviderConfig map[string]any `json:"provider_config"`
}

type PushConfig struct {
	Topic     string   `json:"topic,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
}

type InAppConfig struct {
	Persistent bool `json:"persistent,omitempty"`
}

func (EmailConfig) Type() ChannelType   { return ChannelTypeEmail }
func (WebhookConfig) Type() ChannelType { return ChannelTypeWebhook }
func (SlackConfig) Type() ChannelType   { return ChannelTypeSlack }
func (SMSConfig) Type() ChannelType     { return ChannelTypeSMS }
func (PushConfig) Type() ChannelType    { return ChannelTypePush }
func (InAppConfig) Type() ChannelType   { return ChannelTypeInApp }

// ErrUnsupportedChannelType is returned by DecodeChannelConfig for unknown types.
type ErrUnsupportedChannelType struct {
	Type ChannelType
}

func (e *ErrUnsupportedChannelType) Error() string {
	return fmt.Sprintf("unsupported channel type: %q", string(e.Type))
}

// DecodeChannelConfig decodes raw into the variant for channelType. An empty payload decodes
// to the zero variant.
func DecodeChannelConfig(channelType ChannelType, raw []byte) (ChannelConfig, error) {
	var target ChannelConfig
	switch channelType {
	case ChannelTypeEmail:
		target = &EmailConfig{}
	case ChannelTypeWebhook:
		target = &WebhookConfig{}
	case ChannelTypeSlack:
		target = &SlackConfig{}
	case ChannelTypeSMS:
		target = &SMSConfig{}
	case ChannelTypePush:
		target = &PushConfig{}
	case ChannelTypeInApp:
		target = &InAppConfig{}
	default:
		return nil, &ErrUnsupportedChannelType{Type: channelType}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return deref(target), nil
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", channelType, err)
	}
	return deref(target), nil
}

func deref(c ChannelConfig) ChannelConfig {
	switch v := c.(type) {
	case *EmailConfig:
		return *v
	case *WebhookConfig:
		return *v
	case *SlackConfig:
		return *v
	case *SMSConfig:
		return *v
	case *PushConfig:
		return *v
	case *InAppConfig:
		return *v
	}
	return c
}

// Config decodes the channel's stored configuration.
func (c *NotificationChannel) Config() (ChannelConfig, error) {
	return DecodeChannelConfig(c.ChannelType, c.Configuration)
}
