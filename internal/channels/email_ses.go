package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

const providerSES = "ses"

// SESAPI is the subset of the SES v2 client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESProvider sends email via AWS SES.
type SESProvider struct {
	client    SESAPI
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSESProvider returns nil when client is nil.
func NewSESProvider(client SESAPI, fromEmail, fromName string, logger *logging.Logger) *SESProvider {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESProvider{client: client, fromEmail: fromEmail, fromName: fromName, logger: logger}
}

var _ EmailProvider = (*SESProvider)(nil)

func (p *SESProvider) Name() string { return providerSES }

func (p *SESProvider) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if p == nil || p.client == nil {
		return "", ErrMissingCredentials
	}
	from := p.fromEmail
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail)
	}

	body := &types.Body{}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	output, err := p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		p.logger.Error("SES send failed", "error", err, "to", msg.To)
		return "", &ProviderError{Provider: providerSES, Err: err}
	}
	return aws.ToString(output.MessageId), nil
}
