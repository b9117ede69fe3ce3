package model

import (
	"strconv"
	"time"
)

// DateLayout is the layout of ledger date columns (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Candidate is a listing item while it moves through the filter pipeline.
// Steps fill in fields progressively; a Candidate that survives every step
// becomes a ScrapedRecord.
type Candidate struct {
	// Page is the extracted detail page.
	Page ProductPage

	// Category is set by the classify step.
	Category Category

	// Floor is the minimum accepted price for Category.
	Floor float64

	// Price is the parsed buy price.
	Price float64

	// SellPrice is the parsed sell price, nil when the page had none.
	SellPrice *float64

	// Name is the canonical display name produced by the normalizer.
	Name string

	// Key is the product identity.
	Key ProductKey

	// Observed is the observation date of the crawl run.
	Observed time.Time
}

// NewCandidate creates a Candidate for an extracted page.
func NewCandidate(page ProductPage, observed time.Time) *Candidate {
	return &Candidate{Page: page, Observed: observed}
}

// Record converts an accepted candidate into an immutable ScrapedRecord.
func (c *Candidate) Record() ScrapedRecord {
	rec := ScrapedRecord{
		Key:       c.Key,
		RawTitle:  c.Page.RawTitle,
		Name:      c.Name,
		Category:  c.Category,
		Price:     c.Price,
		ImageURL:  c.Page.ImageURL,
		SourceURL: c.Page.URL,
		Observed:  c.Observed,
	}
	if c.SellPrice != nil {
		sell := *c.SellPrice
		rec.SellPrice = &sell
	}
	return rec
}

// ScrapedRecord is one accepted observation of a product.
// It is created once per parsed listing item, consumed by a ledger flush and
// then discarded.
type ScrapedRecord struct {
	Key       ProductKey `json:"key"`
	RawTitle  string     `json:"raw_title"`
	Name      string     `json:"name"`
	Category  Category   `json:"category"`
	Price     float64    `json:"price"`
	SellPrice *float64   `json:"sell_price,omitempty"`
	ImageURL  string     `json:"image_url,omitempty"`
	SourceURL string     `json:"source_url"`
	Observed  time.Time  `json:"observed"`
}

// ObservedDate returns the ledger column name for the observation.
func (r ScrapedRecord) ObservedDate() string {
	return r.Observed.Format(DateLayout)
}

// PriceCell returns the price formatted as a ledger cell.
func (r ScrapedRecord) PriceCell() string {
	return FormatPrice(r.Price)
}

// FormatPrice formats a price without trailing zeros ("150", "149.5").
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
