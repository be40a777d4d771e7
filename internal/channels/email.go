package channels

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadgen-dispatch/internal/templates"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

var emailTracer = otel.Tracer("leadgen.internal.channels.email")

// EmailMessage is a fully rendered email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// EmailProvider is a transactional email API. Implementations return the
// provider-assigned message ID when one is available.
type EmailProvider interface {
	Name() string
	Send(ctx context.Context, msg EmailMessage) (string, error)
}

// EmailSender renders outreach copy into the HTML layout and hands it to a provider.
type EmailSender struct {
	provider EmailProvider
	fromName string
	renderer templates.Renderer
	logger   *logging.Logger
}

// NewEmailSender wraps provider as a channel Sender.
func NewEmailSender(provider EmailProvider, fromName string, logger *logging.Logger) *EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailSender{provider: provider, fromName: fromName, logger: logger}
}

var _ Sender = (*EmailSender)(nil)

func (s *EmailSender) Channel() Channel { return ChannelEmail }

func (s *EmailSender) Mode() Mode { return ModeLive }

// Send delivers msg to the address in destination.
func (s *EmailSender) Send(ctx context.Context, destination string, msg Message, displayName string) (Receipt, error) {
	if s.provider == nil {
		return Receipt{}, ErrMissingCredentials
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(destination))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if strings.TrimSpace(msg.Body) == "" || strings.TrimSpace(msg.Subject) == "" {
		return Receipt{}, ErrEmptyMessage
	}

	ctx, span := emailTracer.Start(ctx, "channels.email.send")
	defer span.End()
	span.SetAttributes(attribute.String("leadgen.email.provider", s.provider.Name()))

	html, err := s.renderer.RenderEmail(templates.EmailData{
		Preheader:     msg.Subject,
		RecipientName: displayName,
		Paragraphs:    templates.Paragraphs(msg.Body),
		SenderName:    s.fromName,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("channels: %w", err)
	}

	id, err := s.provider.Send(ctx, EmailMessage{
		To:      addr.Address,
		ToName:  displayName,
		Subject: msg.Subject,
		Text:    msg.Body,
		HTML:    html,
	})
	if err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}
	s.logger.Info("email sent", "provider", s.provider.Name(), "to", addr.Address, "subject", msg.Subject, "provider_message_id", id)
	return Receipt{Provider: s.provider.Name(), ProviderMessageID: id}, nil
}
