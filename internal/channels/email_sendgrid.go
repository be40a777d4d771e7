package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

const providerSendGrid = "sendgrid"

// SendGridProvider sends email through the SendGrid v3 mail API.
type SendGridProvider struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid. Host is only set in tests.
type SendGridConfig struct {
	APIKey    string
	Host      string
	FromEmail string
	FromName  string
}

// NewSendGridProvider returns nil when no API key is configured.
func NewSendGridProvider(cfg SendGridConfig, logger *logging.Logger) *SendGridProvider {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridProvider{
		apiKey:    cfg.APIKey,
		host:      strings.TrimRight(cfg.Host, "/"),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

var _ EmailProvider = (*SendGridProvider)(nil)

func (p *SendGridProvider) Name() string { return providerSendGrid }

func (p *SendGridProvider) client() *sendgrid.Client {
	req := sendgrid.GetRequest(p.apiKey, "/v3/mail/send", p.host)
	req.Method = "POST"
	return &sendgrid.Client{Request: req}
}

// Send posts the message and returns the X-Message-Id header value.
func (p *SendGridProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if p == nil || p.apiKey == "" {
		return "", ErrMissingCredentials
	}
	from := mail.NewEmail(p.fromName, p.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, html)

	response, err := p.client().SendWithContext(ctx, message)
	if err != nil {
		p.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return "", &ProviderError{Provider: providerSendGrid, Err: err}
	}
	if response.StatusCode >= 300 {
		p.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return "", &ProviderError{
			Provider:   providerSendGrid,
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(response.Body),
		}
	}

	var id string
	for key, values := range response.Headers {
		if strings.EqualFold(key, "X-Message-Id") && len(values) > 0 {
			id = values[0]
			break
		}
	}
	if id == "" {
		id = fmt.Sprintf("sendgrid-%d", response.StatusCode)
	}
	return id, nil
}
