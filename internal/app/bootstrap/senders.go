package bootstrap

import (
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Senders holds one sender per delivery channel.
type Senders struct {
	WhatsApp channels.Sender
	Email    channels.Sender
}

// BuildSenders resolves the WhatsApp and email senders from config. ses may be
// nil; when the email provider is "ses" that degrades email to simulation.
func BuildSenders(cfg *appconfig.Config, ses channels.SESAPI, logger *logging.Logger) Senders {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return Senders{
			WhatsApp: channels.NewSimulatedSender(channels.ChannelWhatsApp, logger),
			Email:    channels.NewSimulatedSender(channels.ChannelEmail, logger),
		}
	}

	whatsapp, waReason := channels.Build(channels.WhatsAppConfig(channels.WhatsAppSettings{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		BaseURL:       cfg.WhatsAppAPIBaseURL,
		APIVersion:    cfg.WhatsAppAPIVersion,
		Timeout:       cfg.WhatsAppTimeout,
	}), logger)

	emailSettings := channels.EmailSettings{
		Provider:       cfg.EmailProvider,
		SendGridAPIKey: cfg.SendGridAPIKey,
		FromAddress:    cfg.EmailFromAddress,
		FromName:       cfg.EmailFromName,
	}
	if ses != nil {
		emailSettings.SES = ses
	}
	email, emailReason := channels.Build(channels.EmailConfig(emailSettings), logger)

	logger.Info("channel senders ready",
		"whatsapp", waReason,
		"whatsapp_simulated", whatsapp.Mode() == channels.ModeSimulated,
		"email", emailReason,
		"email_simulated", email.Mode() == channels.ModeSimulated,
	)
	return Senders{WhatsApp: whatsapp, Email: email}
}
