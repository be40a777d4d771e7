package scripts

import (
	"errors"
	"strings"
)

// ErrScriptNotFound is returned when a flag update targets an unknown script.
var ErrScriptNotFound = errors.New("scripts: script not found")

// ErrUnknownFlag is returned for flags outside the known set.
var ErrUnknownFlag = errors.New("scripts: unknown sent flag")

// Flag names one of the per-channel sent markers on a script.
type Flag string

const (
	FlagWhatsAppSent Flag = "whatsapp_sent"
	FlagEmailSent    Flag = "email_sent"
	FlagCallMade     Flag = "call_made"
)

// Column returns the storage column for the flag.
func (f Flag) Column() (string, error) {
	switch f {
	case FlagWhatsAppSent, FlagEmailSent, FlagCallMade:
		return string(f), nil
	default:
		return "", ErrUnknownFlag
	}
}

// Script is one generated outreach script for one company within a campaign.
// OwnerUserID is the user who owns the campaign. Phone is optional; the
// generator only fills it when the target's number was known.
type Script struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaign_id"`
	OwnerUserID  string `json:"owner_user_id"`
	CompanyName  string `json:"company_name"`
	Phone        string `json:"phone,omitempty"`
	CallScript   string `json:"call_script"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	WhatsAppSent bool   `json:"whatsapp_sent"`
	EmailSent    bool   `json:"email_sent"`
	CallMade     bool   `json:"call_made"`
}

// Sent reports the value of the given flag.
func (s Script) Sent(f Flag) bool {
	switch f {
	case FlagWhatsAppSent:
		return s.WhatsAppSent
	case FlagEmailSent:
		return s.EmailSent
	case FlagCallMade:
		return s.CallMade
	}
	return false
}

// MissingEmailContent lists the email fields that are blank.
func (s Script) MissingEmailContent() []string {
	var missing []string
	if strings.TrimSpace(s.EmailSubject) == "" {
		missing = append(missing, "email_subject")
	}
	if strings.TrimSpace(s.EmailBody) == "" {
		missing = append(missing, "email_body")
	}
	return missing
}

// MissingChatContent lists the chat fields that are blank.
func (s Script) MissingChatContent() []string {
	if strings.TrimSpace(s.CallScript) == "" {
		return []string{"call_script"}
	}
	return nil
}
