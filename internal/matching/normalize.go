// Package matching associates generated scripts with leads whose identifiers
// rarely agree byte for byte.
package matching

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PhoneSuffixLen is how many trailing digits two numbers must share to be the same line.
const PhoneSuffixLen = 8

// legalSuffixes are stripped from the end of a name, longest sequences first.
var legalSuffixes = [][]string{
	{"do", "brasil"},
	{"e", "cia"},
	{"s", "a"},
	{"ltda"},
	{"eireli"},
	{"epp"},
	{"me"},
	{"sa"},
	{"ss"},
	{"cia"},
	{"ltd"},
	{"llc"},
	{"inc"},
}

// StripDiacritics removes combining marks, so "São Paulo" becomes "Sao Paulo".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize reduces a company name to a comparable key: lowercase, no accents,
// no punctuation, single spaces, and no trailing legal-entity suffixes.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	lowered := strings.ToLower(StripDiacritics(name))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == '.':
			// "s.a." and "ltda." collapse onto their bare forms
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for {
		stripped := false
		for _, suffix := range legalSuffixes {
			if len(tokens) > len(suffix) && hasTail(tokens, suffix) {
				tokens = tokens[:len(tokens)-len(suffix)]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(tokens, " ")
}

func hasTail(tokens, tail []string) bool {
	offset := len(tokens) - len(tail)
	for i, t := range tail {
		if tokens[offset+i] != t {
			return false
		}
	}
	return true
}

// Digits keeps only ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneSuffix returns the last PhoneSuffixLen digits, or "" when the number is too short
// to identify a line.
func PhoneSuffix(phone string) string {
	d := Digits(phone)
	if len(d) < PhoneSuffixLen {
		return ""
	}
	return d[len(d)-PhoneSuffixLen:]
}

// SamePhone reports whether two numbers share their trailing digits.
func SamePhone(a, b string) bool {
	sa := PhoneSuffix(a)
	return sa != "" && sa == PhoneSuffix(b)
}

// EmailDomain returns the lowercased domain of an address.
func EmailDomain(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// WebsiteHost returns the lowercased host of a website URL without a leading "www.".
func WebsiteHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
