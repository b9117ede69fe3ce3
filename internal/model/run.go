package model

import "time"

// RunSummary describes one crawl invocation.
type RunSummary struct {
	// ID is the unique run identifier (UUID).
	ID string `json:"id"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// StartPage is the first listing page requested.
	StartPage int `json:"start_page"`

	// LastPage is the last listing page completed, zero if none.
	LastPage int `json:"last_page"`

	// Pages is the number of listing pages completed.
	Pages int `json:"pages"`

	// Accepted is the number of records accepted into batches.
	Accepted int `json:"accepted"`

	// Written is the number of records applied to the ledger.
	Written int `json:"written"`

	// Flushes is the number of ledger flushes performed.
	Flushes int `json:"flushes"`

	// Wrapped reports whether the catalog's end was reached.
	Wrapped bool `json:"wrapped"`

	// Skips lists every filtered-out item.
	Skips []Skip `json:"skips,omitempty"`

	// Error is the message of the error that ended the run early, if any.
	Error string `json:"error,omitempty"`
}

// SkipCounts returns the number of skips per reason.
func (r *RunSummary) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, s := range r.Skips {
		counts[s.Reason]++
	}
	return counts
}

// FailureCount returns the number of skips that are failures.
func (r *RunSummary) FailureCount() int {
	n := 0
	for _, s := range r.Skips {
		if s.Reason.IsFailure() {
			n++
		}
	}
	return n
}
