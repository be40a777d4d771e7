package leads

import "strings"

// Lead statuses the dispatch engine reads or writes.
const (
	StatusNew        = "new"
	StatusContacted  = "contacted"
	StatusInterested = "interested"
)

// Lead is a contactable company owned by one CRM user.
type Lead struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
	WhatsApp    string `json:"whatsapp"`
	Email       string `json:"email"`
	WebsiteURL  string `json:"website_url"`
	Status      string `json:"status"`
}

// WhatsAppNumber prefers the dedicated WhatsApp field and falls back to the phone.
func (l Lead) WhatsAppNumber() string {
	if v := strings.TrimSpace(l.WhatsApp); v != "" {
		return v
	}
	return strings.TrimSpace(l.Phone)
}

// Contactable reports whether the lead carries anything a script could be matched on.
func (l Lead) Contactable() bool {
	return strings.TrimSpace(l.CompanyName) != "" ||
		strings.TrimSpace(l.Phone) != "" ||
		strings.TrimSpace(l.WhatsApp) != "" ||
		strings.TrimSpace(l.Email) != ""
}
