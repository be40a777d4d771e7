// Package channels turns internal outreach messages into provider calls.
// Every sender reports success as a nil error and failure as an error value;
// nothing panics past Send.
package channels

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Channel is an outbound delivery channel.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// ParseChannel accepts the channel names used on the wire.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelEmail:
		return ChannelEmail, nil
	}
	return "", fmt.Errorf("channels: unknown channel %q", raw)
}

// Mode selects between real provider calls and simulation.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

var (
	// ErrMissingCredentials is returned by live senders missing a required identifier.
	ErrMissingCredentials = errors.New("channels: provider credentials incomplete")
	// ErrInvalidDestination is returned when the destination cannot be addressed.
	ErrInvalidDestination = errors.New("channels: invalid destination")
	// ErrEmptyMessage is returned when there is nothing to send.
	ErrEmptyMessage = errors.New("channels: message body required")
)

// Message is the rendered content for one send. Subject is ignored by chat channels.
type Message struct {
	Subject string
	Body    string
}

// Receipt describes a confirmed send.
type Receipt struct {
	Provider          string
	ProviderMessageID string
	Simulated         bool
}

// Sender delivers one message on one channel.
type Sender interface {
	Channel() Channel
	Mode() Mode
	Send(ctx context.Context, destination string, msg Message, displayName string) (Receipt, error)
}

// ProviderError is a non-2xx response or transport failure from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
