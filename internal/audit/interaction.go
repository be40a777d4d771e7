// Package audit keeps the append-only interaction trail and ties each confirmed
// send to its script's sent-flag.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
)

// Channel types written to the trail.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// SimulatedPrefix marks trail rows produced without a provider call.
const SimulatedPrefix = "[SIMULADO] "

var (
	ErrMissingUser    = errors.New("audit: user id required")
	ErrMissingChannel = errors.New("audit: channel type required")
	ErrMissingScript  = errors.New("audit: script id required")
)

// Interaction is one entry of a user's contact history. LeadID is nil when the
// contact could not be tied to a lead.
type Interaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LeadID      *string   `json:"lead_id,omitempty"`
	ChannelType string    `json:"channel_type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	DeliveryKey string    `json:"delivery_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Delivery pairs a confirmed send with the flag it sets. RunID scopes the
// delivery to one dispatch run, so a script whose flag was reset can be
// delivered and recorded again by a later run.
type Delivery struct {
	ScriptID    string
	Flag        scripts.Flag
	RunID       string
	Interaction Interaction
}

// DeliveryKey identifies one send of one script on one channel within a run.
func DeliveryKey(scriptID string, flag scripts.Flag, runID string) string {
	key := scriptID + ":" + string(flag)
	if runID != "" {
		key += ":" + runID
	}
	return key
}

// Recorder persists the trail.
type Recorder interface {
	// RecordDelivery sets the sent-flag and appends the Interaction atomically.
	// It reports false when the delivery was already recorded; the flag is
	// still set in that case.
	RecordDelivery(ctx context.Context, d Delivery) (bool, error)
	AppendInteraction(ctx context.Context, in Interaction) (Interaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Interaction, error)
}

func validateInteraction(in Interaction) error {
	if strings.TrimSpace(in.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(in.ChannelType) == "" {
		return ErrMissingChannel
	}
	return nil
}

func prepareDelivery(d Delivery) (Delivery, string, error) {
	if strings.TrimSpace(d.ScriptID) == "" {
		return d, "", ErrMissingScript
	}
	col, err := d.Flag.Column()
	if err != nil {
		return d, "", err
	}
	if err := validateInteraction(d.Interaction); err != nil {
		return d, "", err
	}
	d.Interaction.DeliveryKey = DeliveryKey(d.ScriptID, d.Flag, d.RunID)
	return d, col, nil
}
