package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/carledger/internal/model"
)

// Rule is one step of SKU extraction.
//
// Extract receives the prepared title (see Prepare) and returns the SKU, or
// an empty string when the rule does not apply. A rule may also return a
// rewritten title for subsequent rules through Rewrite.
type Rule struct {
	// Name is used in debug logs.
	Name string

	// Extract returns the SKU found in title, or "".
	Extract func(title string) string

	// Rewrite, if set, transforms the title passed to the following rules.
	Rewrite func(title string) string
}

var (
	dualCodePattern   = regexp.MustCompile(`\b[A-Z]{1,4}\d{2,4}/([A-Z]{1,4}\d{2,4})\b`)
	parenPattern      = regexp.MustCompile(`\([^)]*\)`)
	singleCodePattern = regexp.MustCompile(`\b[A-Z]{1,4}\d{2,4}\b`)
)

// DefaultRules returns the SKU rules in evaluation order:
//
//  1. a dual code "AAA11/BBB22" yields the second code;
//  2. parenthesised spans are replaced by a space;
//  3. the last standalone code wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "dual_code",
			Extract: func(title string) string {
				m := dualCodePattern.FindStringSubmatch(title)
				if m == nil {
					return ""
				}
				return m[1]
			},
		},
		{
			Name: "strip_parentheses",
			Rewrite: func(title string) string {
				return parenPattern.ReplaceAllString(title, " ")
			},
		},
		{
			Name: "last_code",
			Extract: func(title string) string {
				codes := singleCodePattern.FindAllString(title, -1)
				if len(codes) == 0 {
					return ""
				}
				return codes[len(codes)-1]
			},
		},
	}
}

// Extractor derives SKU keys from titles.
type Extractor struct {
	rules []Rule
}

// NewExtractor creates an Extractor with the given rules, or DefaultRules
// when none are given.
func NewExtractor(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Prepare returns the canonical form that rules match against: trimmed,
// surrounding quotes removed and upper-cased.
func Prepare(title string) string {
	s := strings.TrimSpace(title)
	s = strings.Trim(s, `"'`)
	return strings.ToUpper(strings.TrimSpace(s))
}

// SKU returns the SKU found in title.
// It returns ErrNoIdentity when no rule matches.
func (e *Extractor) SKU(title string) (string, error) {
	s := Prepare(title)
	if s == "" {
		return "", fmt.Errorf("%w: empty title", ErrNoIdentity)
	}
	for _, r := range e.rules {
		if r.Extract != nil {
			if sku := r.Extract(s); sku != "" {
				return sku, nil
			}
		}
		if r.Rewrite != nil {
			s = r.Rewrite(s)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoIdentity, title)
}

// Key returns the SKU-scheme ProductKey for title.
func (e *Extractor) Key(title string) (model.ProductKey, error) {
	sku, err := e.SKU(title)
	if err != nil {
		return model.ProductKey{}, err
	}
	return model.SKUKey(sku), nil
}

var defaultExtractor = NewExtractor()

// ExtractSKU extracts a SKU with the default rules.
func ExtractSKU(title string) (string, error) {
	return defaultExtractor.SKU(title)
}
