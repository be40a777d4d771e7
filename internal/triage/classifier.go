// Package triage classifies inbound replies and follows up on interested leads.
package triage

import (
	"sort"
	"strings"
	"unicode"

	"github.com/wolfman30/leadgen-dispatch/internal/matching"
)

// Intent is the detected disposition of an inbound reply.
type Intent string

const (
	IntentPositive Intent = "positive"
	IntentNegative Intent = "negative"
	IntentNeutral  Intent = "neutral"
)

// Classifier assigns an Intent to message text.
type Classifier interface {
	Classify(text string) Intent
}

var defaultPositive = []string{
	"sim", "quero", "quero saber", "tenho interesse", "interesse", "interessado", "interessada",
	"gostaria", "pode ligar", "pode me ligar", "me liga", "vamos conversar", "claro",
	"com certeza", "otimo", "perfeito", "bora", "aceito", "topo", "manda", "orcamento",
	"proposta", "agendar", "quando podemos",
}

var defaultNegative = []string{
	"nao", "nao quero", "nao tenho interesse", "sem interesse", "nao obrigado", "agora nao",
	"pare", "parar", "remover", "remova", "descadastrar", "sair da lista", "spam", "chega",
	"nunca", "ja tenho", "nao me mande", "bloquear",
}

// KeywordClassifier counts Portuguese cue phrases. Negative cues are matched
// first and consumed, so "não tenho interesse" does not also count "interesse".
type KeywordClassifier struct {
	positive []string
	negative []string
}

// NewKeywordClassifier uses the built-in cue lists.
func NewKeywordClassifier() *KeywordClassifier {
	return NewKeywordClassifierWith(defaultPositive, defaultNegative)
}

// NewKeywordClassifierWith uses custom cue lists. Cues are normalized the same
// way as message text.
func NewKeywordClassifierWith(positive, negative []string) *KeywordClassifier {
	return &KeywordClassifier{positive: prepareCues(positive), negative: prepareCues(negative)}
}

func (k *KeywordClassifier) Classify(text string) Intent {
	padded := " " + normalizeText(text) + " "
	neg := 0
	for _, cue := range k.negative {
		needle := " " + cue + " "
		if n := strings.Count(padded, needle); n > 0 {
			neg += n
			padded = strings.ReplaceAll(padded, needle, " | ")
		}
	}
	pos := 0
	for _, cue := range k.positive {
		needle := " " + cue + " "
		if n := strings.Count(padded, needle); n > 0 {
			pos += n
			padded = strings.ReplaceAll(padded, needle, " | ")
		}
	}
	switch {
	case pos > neg:
		return IntentPositive
	case neg > pos:
		return IntentNegative
	}
	return IntentNeutral
}

// prepareCues normalizes cues and orders them longest first so phrases win
// over the single words inside them.
func prepareCues(cues []string) []string {
	out := make([]string, 0, len(cues))
	seen := make(map[string]struct{}, len(cues))
	for _, c := range cues {
		c = normalizeText(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(strings.Fields(out[i])) > len(strings.Fields(out[j]))
	})
	return out
}

func normalizeText(s string) string {
	lowered := strings.ToLower(matching.StripDiacritics(s))
	return strings.Join(strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
