package channels

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-msg-1")}, nil
}

type recordingProvider struct {
	sent []EmailMessage
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	p.sent = append(p.sent, msg)
	return "rec-1", nil
}

func TestEmailSender_RendersLayout(t *testing.T) {
	provider := &recordingProvider{}
	sender := NewEmailSender(provider, "LeadGen CRM", nil)

	receipt, err := sender.Send(context.Background(), "contato@acme.com.br", Message{
		Subject: "Proposta",
		Body:    "Olá equipe.\n\nPodemos conversar?",
	}, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", receipt.ProviderMessageID)
	require.Len(t, provider.sent, 1)

	msg := provider.sent[0]
	assert.Equal(t, "contato@acme.com.br", msg.To)
	assert.Equal(t, "Proposta", msg.Subject)
	assert.Contains(t, msg.HTML, "Podemos conversar?")
	assert.Contains(t, msg.HTML, "LeadGen CRM")
	assert.Equal(t, "Olá equipe.\n\nPodemos conversar?", msg.Text)
}

func TestEmailSender_Validation(t *testing.T) {
	sender := NewEmailSender(&recordingProvider{}, "", nil)

	_, err := sender.Send(context.Background(), "not-an-email", Message{Subject: "s", Body: "b"}, "")
	assert.ErrorIs(t, err, ErrInvalidDestination)

	_, err = sender.Send(context.Background(), "a@b.com", Message{Subject: "", Body: "b"}, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendGridProvider_Send(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("X-Message-Id", "sg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	provider := NewSendGridProvider(SendGridConfig{APIKey: "sg-key", Host: srv.URL, FromEmail: "crm@leadgen.dev", FromName: "LeadGen"}, nil)
	require.NotNil(t, provider)

	id, err := provider.Send(context.Background(), EmailMessage{To: "a@b.com", Subject: "Oi", Text: "corpo", HTML: "<p>corpo</p>"})
	require.NoError(t, err)
	assert.Equal(t, "sg-123", id)
	assert.Equal(t, "Oi", payload["subject"])
}

func TestSendGridProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	provider := NewSendGridProvider(SendGridConfig{APIKey: "sg-key", Host: srv.URL, FromEmail: "crm@leadgen.dev"}, nil)
	_, err := provider.Send(context.Background(), EmailMessage{To: "a@b.com", Subject: "Oi", Text: "corpo"})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, perr.Body, "bad from")
}

func TestNewSendGridProvider_NilWithoutKey(t *testing.T) {
	assert.Nil(t, NewSendGridProvider(SendGridConfig{}, nil))
}

func TestSESProvider_Send(t *testing.T) {
	ses := &fakeSES{}
	provider := NewSESProvider(ses, "crm@leadgen.dev", "LeadGen", nil)

	id, err := provider.Send(context.Background(), EmailMessage{To: "a@b.com", Subject: "Oi", Text: "corpo", HTML: "<p>corpo</p>"})
	require.NoError(t, err)
	assert.Equal(t, "ses-msg-1", id)
	require.NotNil(t, ses.input)
	assert.Equal(t, "LeadGen <crm@leadgen.dev>", aws.ToString(ses.input.FromEmailAddress))
	assert.Equal(t, []string{"a@b.com"}, ses.input.Destination.ToAddresses)
	assert.Equal(t, "<p>corpo</p>", aws.ToString(ses.input.Content.Simple.Body.Html.Data))
}

func TestSESProvider_Error(t *testing.T) {
	provider := NewSESProvider(&fakeSES{err: errors.New("throttled")}, "crm@leadgen.dev", "", nil)
	_, err := provider.Send(context.Background(), EmailMessage{To: "a@b.com", Subject: "Oi", Text: "corpo"})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ses", perr.Provider)
}
