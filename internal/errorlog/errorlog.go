// Package errorlog persists per-item dispatch failures so they can be queried
// after a run by campaign, type and time.
package errorlog

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrorType classifies a dispatch failure.
type ErrorType string

const (
	NoScripts        ErrorType = "NO_SCRIPTS"
	NoLeads          ErrorType = "NO_LEADS"
	NoMatch          ErrorType = "NO_MATCH"
	NoWhatsAppField  ErrorType = "NO_WHATSAPP_FIELD"
	NoEmailField     ErrorType = "NO_EMAIL_FIELD"
	IncompleteScript ErrorType = "INCOMPLETE_SCRIPT"
	ProviderError    ErrorType = "PROVIDER_ERROR"
	ProcessingError  ErrorType = "PROCESSING_ERROR"
	AuditWriteFailed ErrorType = "AUDIT_WRITE_FAILED"
	RunInProgress    ErrorType = "RUN_IN_PROGRESS"
)

var knownTypes = map[ErrorType]struct{}{
	NoScripts: {}, NoLeads: {}, NoMatch: {}, NoWhatsAppField: {}, NoEmailField: {},
	IncompleteScript: {}, ProviderError: {}, ProcessingError: {}, AuditWriteFailed: {}, RunInProgress: {},
}

// ErrUnknownType is returned when parsing an unrecognised error type.
var ErrUnknownType = errors.New("errorlog: unknown error type")

// ParseType accepts an error type in any case.
func ParseType(raw string) (ErrorType, error) {
	t := ErrorType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownTypes[t]; !ok {
		return "", ErrUnknownType
	}
	return t, nil
}

// Entry is one logged failure. Subject is usually the company name of the script.
type Entry struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	UserID     string    `json:"user_id"`
	ErrorType  ErrorType `json:"error_type"`
	Channel    string    `json:"channel,omitempty"`
	Subject    string    `json:"subject"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	CampaignID string
	UserID     string
	ErrorTypes []ErrorType
	Since      time.Time
	Limit      int
}

// Store records and lists entries, newest first.
type Store interface {
	Log(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

func (f Filter) matches(e Entry) bool {
	if f.CampaignID != "" && e.CampaignID != f.CampaignID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	if len(f.ErrorTypes) == 0 {
		return true
	}
	for _, t := range f.ErrorTypes {
		if t == e.ErrorType {
			return true
		}
	}
	return false
}
