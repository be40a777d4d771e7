package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadgen-dispatch/internal/matching"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

var whatsappTracer = otel.Tracer("leadgen.internal.channels.whatsapp")

const providerWhatsApp = "whatsapp"

// WhatsAppSender posts text messages through the WhatsApp Cloud API.
// It does not retry; a failed send is reported to the caller as is.
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	apiVersion    string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewWhatsAppSender builds a live sender from the channel settings.
func NewWhatsAppSender(s WhatsAppSettings, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	version := strings.Trim(strings.TrimSpace(s.APIVersion), "/")
	if version == "" {
		version = "v19.0"
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppSender{
		accessToken:   strings.TrimSpace(s.AccessToken),
		phoneNumberID: strings.TrimSpace(s.PhoneNumberID),
		baseURL:       baseURL,
		apiVersion:    version,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

var _ Sender = (*WhatsAppSender)(nil)

func (s *WhatsAppSender) Channel() Channel { return ChannelWhatsApp }

func (s *WhatsAppSender) Mode() Mode { return ModeLive }

type whatsappTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// Send delivers msg.Body to the phone number in destination.
func (s *WhatsAppSender) Send(ctx context.Context, destination string, msg Message, displayName string) (Receipt, error) {
	if s.accessToken == "" || s.phoneNumberID == "" {
		return Receipt{}, ErrMissingCredentials
	}
	to := matching.Digits(destination)
	if to == "" {
		return Receipt{}, ErrInvalidDestination
	}
	if strings.TrimSpace(msg.Body) == "" {
		return Receipt{}, ErrEmptyMessage
	}

	ctx, span := whatsappTracer.Start(ctx, "channels.whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("leadgen.to", to))

	payload := whatsappTextPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = msg.Body
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("channels: marshal whatsapp payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.apiVersion, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return Receipt{}, fmt.Errorf("channels: build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("whatsapp send failed", "error", err, "to", to)
		return Receipt{}, &ProviderError{Provider: providerWhatsApp, Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{
			Provider:   providerWhatsApp,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
		span.RecordError(perr)
		s.logger.Error("whatsapp provider rejected message", "status", resp.StatusCode, "body", perr.Body, "to", to)
		return Receipt{}, perr
	}

	receipt := Receipt{Provider: providerWhatsApp}
	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
		receipt.ProviderMessageID = parsed.Messages[0].ID
	}
	s.logger.Info("whatsapp message sent", "to", to, "display_name", displayName, "provider_message_id", receipt.ProviderMessageID)
	return receipt, nil
}
