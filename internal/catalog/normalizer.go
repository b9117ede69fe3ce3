package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultPrefixes returns the generic leading phrases removed from titles,
// in the order they are applied.
func DefaultPrefixes() []string {
	return []string{
		"Машинка Базова",
		"Тематична Машинка",
		"Машинка",
		"Basic Car",
		"Themed Car",
		"Hot Wheels",
		"Premium Hot Wheels",
		"Matchbox",
	}
}

// Normalizer turns raw titles into display names.
type Normalizer struct {
	patterns []*regexp.Regexp
}

// NewNormalizer compiles prefixes into case-insensitive leading-phrase
// patterns. Words of a prefix match across any run of whitespace.
func NewNormalizer(prefixes []string) *Normalizer {
	n := &Normalizer{patterns: make([]*regexp.Regexp, 0, len(prefixes))}
	for _, p := range prefixes {
		words := strings.Fields(norm.NFC.String(p))
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		expr := `(?i)^\s*` + strings.Join(words, `\s+`) + `(?:\s+|$)`
		n.patterns = append(n.patterns, regexp.MustCompile(expr))
	}
	return n
}

// NewDefaultNormalizer creates a Normalizer with DefaultPrefixes.
func NewDefaultNormalizer() *Normalizer {
	return NewNormalizer(DefaultPrefixes())
}

// Normalize strips every matching prefix in order and trims the result.
// An empty result is reported as ErrEmptyName.
func (n *Normalizer) Normalize(title string) (string, error) {
	s := norm.NFC.String(title)
	for _, p := range n.patterns {
		s = p.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyName, title)
	}
	return s, nil
}
