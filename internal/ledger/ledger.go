package ledger

import (
	"slices"
	"time"

	"github.com/nao1215/carledger/internal/model"
)

// Known column names.
const (
	ColumnSKU      = "sku"
	ColumnCategory = "category"
	ColumnName     = "car_name"
	ColumnImage    = "image_url"
)

// Row is one product of the ledger. Price cells keep their text as read.
type Row struct {
	SKU      string
	Category string
	Name     string
	ImageURL string

	// Prices maps an observation date to its cell. A date without an entry
	// or with an empty cell was not observed.
	Prices map[string]string

	// Extra holds cells of unknown columns.
	Extra map[string]string
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{
		Prices: make(map[string]string),
		Extra:  make(map[string]string),
	}
}

// Price returns the price cell at date, or "".
func (r *Row) Price(date string) string {
	return r.Prices[date]
}

// HasPrices reports whether the row has at least one non-empty price cell.
func (r *Row) HasPrices() bool {
	return r.LatestDate() != ""
}

// LatestDate returns the latest date with a non-empty price cell, or "".
// Dates are YYYY-MM-DD, so string order is chronological.
func (r *Row) LatestDate() string {
	latest := ""
	for d, v := range r.Prices {
		if v != "" && d > latest {
			latest = d
		}
	}
	return latest
}

// clone returns a deep copy of r.
func (r *Row) clone() *Row {
	c := *r
	c.Prices = make(map[string]string, len(r.Prices))
	for k, v := range r.Prices {
		c.Prices[k] = v
	}
	c.Extra = make(map[string]string, len(r.Extra))
	for k, v := range r.Extra {
		c.Extra[k] = v
	}
	return &c
}

// Ledger is an in-memory working copy of a ledger file.
type Ledger struct {
	// HasSKU reports whether the ledger is keyed by the sku column.
	HasSKU bool

	// Extra lists unknown columns in their original order.
	Extra []string

	// Rows are kept in insertion order.
	Rows []*Row

	dates []string
}

// New creates an empty ledger.
func New(hasSKU bool) *Ledger {
	return &Ledger{HasSKU: hasSKU}
}

// Dates returns the date columns in chronological order.
func (l *Ledger) Dates() []string {
	return slices.Clone(l.dates)
}

// AddDate adds a date column if it is not present yet.
func (l *Ledger) AddDate(date string) {
	i, found := slices.BinarySearch(l.dates, date)
	if found {
		return
	}
	l.dates = slices.Insert(l.dates, i, date)
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	return len(l.Rows)
}

// Append adds a row and the date columns it uses.
func (l *Ledger) Append(r *Row) {
	for d := range r.Prices {
		l.AddDate(d)
	}
	l.Rows = append(l.Rows, r)
}

// Header returns the column names in file order.
func (l *Ledger) Header() []string {
	h := make([]string, 0, 4+len(l.Extra)+len(l.dates))
	if l.HasSKU {
		h = append(h, ColumnSKU)
	}
	h = append(h, ColumnCategory, ColumnName, ColumnImage)
	h = append(h, l.Extra...)
	h = append(h, l.dates...)
	return h
}

// isDateColumn reports whether name is a YYYY-MM-DD column.
func isDateColumn(name string) bool {
	if len(name) != len(model.DateLayout) {
		return false
	}
	_, err := time.Parse(model.DateLayout, name)
	return err == nil
}
