package identity

import (
	"regexp"
	"strings"

	"github.com/nao1215/carledger/internal/model"
)

// UnknownColor is the color used when a title carries no trailing color word.
const UnknownColor = "Unknown"

var (
	seriesCodePattern = regexp.MustCompile(`[A-Z]{3,4}\d{2}(?:/[A-Z]{3,4}\d{2})?`)
	colorPattern      = regexp.MustCompile(`\b(?:[A-Z][a-z]*(?:\s[A-Z][a-z]*)?)\s*$`)
)

// SeriesCode returns the first series code in name, including an optional
// "/XXX00" suffix, or "" when there is none. Matching is case sensitive.
func SeriesCode(name string) string {
	return seriesCodePattern.FindString(name)
}

// Color returns the trailing capitalised word or word pair of name, or
// UnknownColor.
func Color(name string) string {
	m := colorPattern.FindString(name)
	if m == "" {
		return UnknownColor
	}
	c := strings.TrimSpace(m)
	if c == "" {
		return UnknownColor
	}
	return c
}

// CompositeID returns the legacy identity string for a row:
// "category_code_color" when name has a series code, otherwise
// "category_name".
func CompositeID(category, name string) string {
	name = strings.TrimSpace(name)
	code := SeriesCode(name)
	if code == "" {
		return category + "_" + name
	}
	return category + "_" + code + "_" + Color(name)
}

// CompositeKey returns the composite-scheme ProductKey for a row.
func CompositeKey(category, name string) model.ProductKey {
	return model.CompositeKey(CompositeID(category, name))
}
