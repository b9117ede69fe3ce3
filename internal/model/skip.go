package model

import (
	"fmt"
	"slices"
)

// SkipReason classifies why a listing item produced no record.
type SkipReason string

// Skip reasons. The first group are extraction or fetch failures and are
// written to the failure log; the second group are policy filters.
const (
	SkipFetchFailed    SkipReason = "fetch_failed"
	SkipMissingElement SkipReason = "missing_element"
	SkipBadPrice       SkipReason = "bad_price"
	SkipEmptyName      SkipReason = "empty_name"
	SkipMissingSKU     SkipReason = "missing_sku"

	SkipNotVehicle      SkipReason = "not_vehicle"
	SkipIgnored         SkipReason = "ignored"
	SkipCategorySkipped SkipReason = "category_skipped"
	SkipBelowFloor      SkipReason = "below_floor"
)

// FailureReasons returns the reasons for which IsFailure is true.
func FailureReasons() []SkipReason {
	return []SkipReason{SkipFetchFailed, SkipMissingElement, SkipBadPrice, SkipEmptyName, SkipMissingSKU}
}

// IsFailure reports whether the reason is a fetch or extraction failure
// rather than a deliberate filter.
func (r SkipReason) IsFailure() bool {
	return slices.Contains(FailureReasons(), r)
}

// Skip is a filtered-out listing item.
type Skip struct {
	// URL identifies the affected detail page.
	URL string `json:"url"`

	// Reason is the machine-readable skip class.
	Reason SkipReason `json:"reason"`

	// Detail is a human-readable explanation.
	Detail string `json:"detail,omitempty"`
}

// String returns "url: reason (detail)".
func (s Skip) String() string {
	if s.Detail == "" {
		return fmt.Sprintf("%s: %s", s.URL, s.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", s.URL, s.Reason, s.Detail)
}
