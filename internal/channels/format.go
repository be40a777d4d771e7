package channels

import (
	"strings"

	"github.com/wolfman30/leadgen-dispatch/internal/leads"
)

// Format fills lead placeholders in generated script text. Generated scripts use
// both Portuguese and English placeholder names; unknown placeholders are left as-is.
func Format(tmpl string, lead leads.Lead) string {
	company := strings.TrimSpace(lead.CompanyName)
	phone := strings.TrimSpace(lead.Phone)
	site := strings.TrimSpace(lead.WebsiteURL)
	email := strings.TrimSpace(lead.Email)

	r := strings.NewReplacer(
		"{{empresa}}", company,
		"{{company}}", company,
		"{{telefone}}", phone,
		"{{phone}}", phone,
		"{{email}}", email,
		"{{site}}", site,
		"{{website}}", site,
		"[Nome da Empresa]", company,
		"[EMPRESA]", company,
	)
	return strings.TrimSpace(r.Replace(tmpl))
}
