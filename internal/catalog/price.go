package catalog

import (
	"fmt"
	"regexp"
	"strconv"
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// ParsePrice extracts a number from a displayed price such as "1 299 грн".
// Every character other than digits and '.' is dropped before parsing.
func ParsePrice(raw string) (float64, error) {
	s := nonPriceChars.ReplaceAllString(raw, "")
	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPrice, raw)
	}
	return v, nil
}
