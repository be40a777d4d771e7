package channels

import (
	"fmt"

	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Build returns the sender for cfg along with a short reason describing the
// selection. A live config with no provider credential degrades to
// simulation; a credential with incomplete settings stays live and fails at
// send time with ErrMissingCredentials.
func Build(cfg ChannelConfig, logger *logging.Logger) (Sender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Mode == ModeSimulated {
		return NewSimulatedSender(cfg.Channel, logger), "simulation mode"
	}

	switch cfg.Channel {
	case ChannelWhatsApp:
		if cfg.WhatsApp.AccessToken == "" {
			logger.Warn("whatsapp access token not configured; using simulation")
			return NewSimulatedSender(ChannelWhatsApp, logger), "whatsapp access token not configured"
		}
		if cfg.WhatsApp.PhoneNumberID == "" {
			logger.Error("whatsapp phone number id not configured; live sends will fail")
			return NewWhatsAppSender(cfg.WhatsApp, logger), "whatsapp cloud api (phone number id missing)"
		}
		return NewWhatsAppSender(cfg.WhatsApp, logger), "whatsapp cloud api"
	case ChannelEmail:
		var provider EmailProvider
		switch cfg.Email.Provider {
		case EmailProviderSES:
			if p := NewSESProvider(cfg.Email.SES, cfg.Email.FromAddress, cfg.Email.FromName, logger); p != nil {
				provider = p
			}
		default:
			if p := NewSendGridProvider(SendGridConfig{
				APIKey:    cfg.Email.SendGridAPIKey,
				Host:      cfg.Email.SendGridHost,
				FromEmail: cfg.Email.FromAddress,
				FromName:  cfg.Email.FromName,
			}, logger); p != nil {
				provider = p
			}
		}
		if provider == nil {
			logger.Warn("email provider not configured; using simulation", "provider", cfg.Email.Provider)
			return NewSimulatedSender(ChannelEmail, logger), fmt.Sprintf("%s not configured", cfg.Email.Provider)
		}
		return NewEmailSender(provider, cfg.Email.FromName, logger), provider.Name()
	}
	return NewSimulatedSender(cfg.Channel, logger), fmt.Sprintf("unknown channel %q", cfg.Channel)
}
