package channels

import (
	"strings"
	"time"
)

const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
)

// WhatsAppSettings are the Cloud API identifiers for the WhatsApp channel.
type WhatsAppSettings struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	Timeout       time.Duration
}

// EmailSettings configure the email channel. SES is used when Provider is "ses"
// and a client is supplied; SendGrid otherwise.
type EmailSettings struct {
	Provider       string
	SendGridAPIKey string
	SendGridHost   string
	SES            SESAPI
	FromAddress    string
	FromName       string
}

// ChannelConfig is the explicit delivery configuration of one channel.
type ChannelConfig struct {
	Channel  Channel
	Mode     Mode
	WhatsApp WhatsAppSettings
	Email    EmailSettings
}

// WhatsAppConfig builds the WhatsApp channel config. Without an access token the
// channel runs simulated.
func WhatsAppConfig(s WhatsAppSettings) ChannelConfig {
	mode := ModeLive
	if strings.TrimSpace(s.AccessToken) == "" {
		mode = ModeSimulated
	}
	return ChannelConfig{Channel: ChannelWhatsApp, Mode: mode, WhatsApp: s}
}

// EmailConfig builds the email channel config. Without a credential for the
// selected provider the channel runs simulated.
func EmailConfig(s EmailSettings) ChannelConfig {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.Provider == "" {
		s.Provider = EmailProviderSendGrid
	}
	mode := ModeSimulated
	switch s.Provider {
	case EmailProviderSES:
		if s.SES != nil {
			mode = ModeLive
		}
	default:
		if strings.TrimSpace(s.SendGridAPIKey) != "" {
			mode = ModeLive
		}
	}
	return ChannelConfig{Channel: ChannelEmail, Mode: mode, Email: s}
}
