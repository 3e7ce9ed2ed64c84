package assessment

import (
	"strings"
	"unicode"

	"github.com/kilianp07/erdispatch/core/model"
)

// Tier associates a severity with the words that trigger it.
type Tier struct {
	Severity model.Severity
	Keywords []string
}

// DefaultTiers are checked in order; the first tier with a matching word wins.
var DefaultTiers = []Tier{
	{Severity: model.SeverityHigh, Keywords: []string{"critical", "life-threatening", "severe", "multiple", "large-scale", "catastrophic"}},
	{Severity: model.SeverityMedium, Keywords: []string{"urgent", "serious", "significant", "widespread"}},
	{Severity: model.SeverityLow, Keywords: []string{"minor", "small-scale", "localized", "contained"}},
}

// KeywordClassifier maps a free-text description to a severity by matching
// whole words against ordered tiers.
type KeywordClassifier struct {
	tiers []Tier
}

// NewKeywordClassifier returns a classifier using tiers, or DefaultTiers when
// none are given.
func NewKeywordClassifier(tiers ...Tier) *KeywordClassifier {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	return &KeywordClassifier{tiers: tiers}
}

// Name implements Strategy.
func (k *KeywordClassifier) Name() string { return "keyword" }

// Classify returns the severity of description. Descriptions without any
// keyword are Low.
func (k *KeywordClassifier) Classify(description string) model.Severity {
	words := make(map[string]struct{})
	for _, w := range Words(description) {
		words[w] = struct{}{}
	}
	for _, t := range k.tiers {
		for _, kw := range t.Keywords {
			if _, ok := words[kw]; ok {
				return t.Severity
			}
		}
	}
	return model.SeverityLow
}

// Words lowercases s, splits it on whitespace and trims surrounding
// punctuation from each word. Inner hyphens are preserved.
func Words(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
