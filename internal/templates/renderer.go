package templates

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
)

// Renderer renders small templates for outbound messaging.
type Renderer struct{}

// Render compiles the provided template text with strict missing-key semantics.
func (Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("templates: parse: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute: %w", err)
	}
	return buf.String(), nil
}

// EmailData fills the outbound email layout.
type EmailData struct {
	Preheader     string
	RecipientName string
	Paragraphs    []string
	SenderName    string
}

const emailLayout = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
<span style="display:none;max-height:0;overflow:hidden;">{{.Preheader}}</span>
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f4f5f7;padding:24px 0;">
  <tr><td align="center">
    <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
      {{if .RecipientName}}<tr><td style="color:#6b7280;font-size:13px;padding-bottom:16px;">{{.RecipientName}}</td></tr>{{end}}
      {{range .Paragraphs}}<tr><td style="color:#111827;font-size:15px;line-height:1.6;padding-bottom:12px;">{{.}}</td></tr>
      {{end}}
      {{if .SenderName}}<tr><td style="color:#6b7280;font-size:12px;padding-top:24px;border-top:1px solid #e5e7eb;">{{.SenderName}}</td></tr>{{end}}
    </table>
  </td></tr>
</table>
</body>
</html>`

var emailTemplate = htmltemplate.Must(htmltemplate.New("email").Parse(emailLayout))

// RenderEmail wraps the data in the fixed HTML layout. Text is escaped.
func (Renderer) RenderEmail(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: render email: %w", err)
	}
	return buf.String(), nil
}

// Paragraphs splits plain text on blank lines, trimming each block.
func Paragraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
