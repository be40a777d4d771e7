package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
)

// Target selects the channels a run sends on.
type Target string

const (
	TargetWhatsApp Target = "whatsapp"
	TargetEmail    Target = "email"
	TargetAll      Target = "all"
)

// ParseTarget accepts "whatsapp", "email" or "all" in any case.
func ParseTarget(raw string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(raw))); t {
	case TargetWhatsApp, TargetEmail, TargetAll:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTarget, raw)
}

// Channels lists the channels of the target in send order.
func (t Target) Channels() []channels.Channel {
	switch t {
	case TargetWhatsApp:
		return []channels.Channel{channels.ChannelWhatsApp}
	case TargetEmail:
		return []channels.Channel{channels.ChannelEmail}
	case TargetAll:
		return []channels.Channel{channels.ChannelWhatsApp, channels.ChannelEmail}
	}
	return nil
}

func flagFor(c channels.Channel) scripts.Flag {
	if c == channels.ChannelEmail {
		return scripts.FlagEmailSent
	}
	return scripts.FlagWhatsAppSent
}

// Error is one itemized failure of a run.
type Error struct {
	Subject string             `json:"subject"`
	Kind    errorlog.ErrorType `json:"kind"`
	Channel string             `json:"channel,omitempty"`
	Detail  string             `json:"detail"`
}

// MatchStats counts scripts by the tier that matched them.
type MatchStats struct {
	ExactMatch int `json:"exact_match"`
	FuzzyMatch int `json:"fuzzy_match"`
	PhoneMatch int `json:"phone_match"`
	NoMatch    int `json:"no_match"`
}

// Outcome is the aggregate result of one run. Ran is false when a run-level
// precondition stopped it before any script was processed. AlreadyRecorded
// counts sends whose audit row already existed, so no new Interaction was
// written for them.
type Outcome struct {
	CampaignID       string     `json:"campaign_id"`
	Channel          Target     `json:"channel"`
	Ran              bool       `json:"ran"`
	Simulated        bool       `json:"simulated"`
	SentCount        int        `json:"sent_count"`
	FailedCount      int        `json:"failed_count"`
	SkippedCount     int        `json:"skipped_count"`
	AlreadyRecorded  int        `json:"already_recorded"`
	SentCompanyNames []string   `json:"sent_company_names"`
	Errors           []Error    `json:"errors"`
	MatchStats       MatchStats `json:"match_stats"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       time.Time  `json:"finished_at"`
}

// HasErrorKind reports whether any itemized error has the given kind.
func (o Outcome) HasErrorKind(kind errorlog.ErrorType) bool {
	for _, e := range o.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
