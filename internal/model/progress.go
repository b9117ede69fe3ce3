package model

// CrawlProgress is the pagination state of a crawl.
// LastCompleted is the only field persisted; the others describe the
// current invocation.
type CrawlProgress struct {
	// LastCompleted is the last listing page fully processed.
	// Zero means no page has been completed (start from page 1).
	LastCompleted int `json:"last_completed"`

	// TargetPage is the last page this invocation may visit.
	TargetPage int `json:"target_page"`

	// PagesThisRun counts the pages completed in this invocation.
	PagesThisRun int `json:"pages_this_run"`
}

// NewCrawlProgress creates progress resuming after lastCompleted with a
// budget of maxPages pages for this invocation.
func NewCrawlProgress(lastCompleted, maxPages int) CrawlProgress {
	if lastCompleted < 0 {
		lastCompleted = 0
	}
	return CrawlProgress{
		LastCompleted: lastCompleted,
		TargetPage:    lastCompleted + maxPages,
	}
}

// NextPage returns the page to fetch next.
func (p CrawlProgress) NextPage() int {
	return p.LastCompleted + 1
}

// Complete marks page as done.
func (p *CrawlProgress) Complete(page int) {
	p.LastCompleted = page
	p.PagesThisRun++
}

// Wrap resets the progress after the catalog's last page so the next
// invocation starts again from page 1.
func (p *CrawlProgress) Wrap() {
	p.LastCompleted = 0
}

// BudgetExhausted reports whether this invocation may not fetch more pages.
func (p CrawlProgress) BudgetExhausted(maxPages int) bool {
	return p.PagesThisRun >= maxPages
}
