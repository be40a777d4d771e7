package matching

import (
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
)

// DefaultFuzzyThreshold is the lowest name similarity accepted by the fuzzy tier.
const DefaultFuzzyThreshold = 0.8

// phoneFallbackSimilarity is reported for matches made on the phone number alone.
const phoneFallbackSimilarity = 0.7

// Reason records which tier produced a match.
type Reason string

const (
	ReasonExactNamePhone  Reason = "exact name+phone"
	ReasonExactNameDomain Reason = "exact name+domain"
	ReasonFuzzyName       Reason = "fuzzy name"
	ReasonPhoneFallback   Reason = "phone fallback"
)

// Exact reports whether the reason came from one of the exact-name tiers.
func (r Reason) Exact() bool {
	return r == ReasonExactNamePhone || r == ReasonExactNameDomain
}

// Result is the lead chosen for a script.
type Result struct {
	Script     scripts.Script
	Lead       leads.Lead
	Reason     Reason
	Similarity float64
}

type candidate struct {
	lead        leads.Lead
	name        string
	phoneSuffix string
	waSuffix    string
	emailDomain string
	websiteHost string
}

// Candidates is a lead set with its match keys computed once, so a dispatch run
// does not re-normalize every lead for every script.
type Candidates struct {
	items []candidate
}

// NewCandidates precomputes match keys. The input slice is not modified.
func NewCandidates(all []leads.Lead) *Candidates {
	items := make([]candidate, 0, len(all))
	for _, l := range all {
		items = append(items, candidate{
			lead:        l,
			name:        Normalize(l.CompanyName),
			phoneSuffix: PhoneSuffix(l.Phone),
			waSuffix:    PhoneSuffix(l.WhatsApp),
			emailDomain: EmailDomain(l.Email),
			websiteHost: WebsiteHost(l.WebsiteURL),
		})
	}
	return &Candidates{items: items}
}

// Len returns the number of candidates.
func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Matcher runs the tiered match cascade. The zero value uses DefaultFuzzyThreshold.
type Matcher struct {
	FuzzyThreshold float64
}

// NewMatcher returns a matcher with the default threshold.
func NewMatcher() *Matcher {
	return &Matcher{FuzzyThreshold: DefaultFuzzyThreshold}
}

func (m *Matcher) threshold() float64 {
	if m == nil || m.FuzzyThreshold <= 0 {
		return DefaultFuzzyThreshold
	}
	return m.FuzzyThreshold
}

// Match picks the best lead for script among all. It never mutates its inputs.
func (m *Matcher) Match(script scripts.Script, all []leads.Lead) (Result, bool) {
	return m.MatchCandidates(script, NewCandidates(all))
}

// MatchCandidates runs the cascade against a precomputed lead set. Tiers run in
// order and the first tier that finds a lead wins:
//
//  1. equal normalized names and a usable lead phone (matching the script's, when it has one)
//  2. equal normalized names and a lead email domain equal to its own website host
//  3. best name similarity at or above the threshold, earliest candidate on ties
//  4. script phone equal to a lead phone or WhatsApp number
func (m *Matcher) MatchCandidates(script scripts.Script, set *Candidates) (Result, bool) {
	if set == nil || len(set.items) == 0 {
		return Result{}, false
	}
	name := Normalize(script.CompanyName)
	scriptPhone := PhoneSuffix(script.Phone)

	if name != "" {
		for _, c := range set.items {
			if c.name != name || c.phoneSuffix == "" {
				continue
			}
			if scriptPhone != "" && scriptPhone != c.phoneSuffix {
				continue
			}
			return Result{Script: script, Lead: c.lead, Reason: ReasonExactNamePhone, Similarity: 1}, true
		}

		for _, c := range set.items {
			if c.name != name || c.emailDomain == "" {
				continue
			}
			if c.emailDomain == c.websiteHost {
				return Result{Script: script, Lead: c.lead, Reason: ReasonExactNameDomain, Similarity: 1}, true
			}
		}

		best := -1
		bestScore := 0.0
		for i, c := range set.items {
			if c.name == "" {
				continue
			}
			score := Similarity(name, c.name)
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 && bestScore >= m.threshold() {
			return Result{Script: script, Lead: set.items[best].lead, Reason: ReasonFuzzyName, Similarity: bestScore}, true
		}
	}

	if scriptPhone != "" {
		for _, c := range set.items {
			if c.phoneSuffix == scriptPhone || c.waSuffix == scriptPhone {
				return Result{Script: script, Lead: c.lead, Reason: ReasonPhoneFallback, Similarity: phoneFallbackSimilarity}, true
			}
		}
	}

	return Result{}, false
}
