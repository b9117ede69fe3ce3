package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

// JSONWriter outputs results as JSON documents.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

var _ Writer = (*JSONWriter)(nil)

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCrawl implements Writer.
func (w *JSONWriter) WriteCrawl(run *model.RunSummary) (int, error) {
	return w.writeJSON(run)
}

// MergeReport is the JSON form of a merge result.
type MergeReport struct {
	RowsBefore int              `json:"rows_before"`
	RowsAfter  int              `json:"rows_after"`
	Groups     int              `json:"groups"`
	Duplicates []DuplicateEntry `json:"duplicates"`
	Unresolved []RowRef         `json:"unresolved"`
}

// DuplicateEntry is one merged group.
type DuplicateEntry struct {
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Names []string `json:"names"`
}

// RowRef identifies a ledger row by its descriptive cells.
type RowRef struct {
	SKU      string `json:"sku,omitempty"`
	Category string `json:"category"`
	Name     string `json:"car_name"`
}

// NewMergeReport converts res.
func NewMergeReport(res *ledger.MergeResult) MergeReport {
	r := MergeReport{
		RowsBefore: res.RowsBefore,
		RowsAfter:  res.RowsAfter,
		Groups:     res.Groups,
		Duplicates: make([]DuplicateEntry, 0, len(res.Duplicates)),
		Unresolved: make([]RowRef, 0, len(res.Unresolved)),
	}
	for _, g := range res.Duplicates {
		r.Duplicates = append(r.Duplicates, DuplicateEntry{Key: g.Key, Name: g.Name, Names: g.Names})
	}
	for _, row := range res.Unresolved {
		r.Unresolved = append(r.Unresolved, RowRef{SKU: row.SKU, Category: row.Category, Name: row.Name})
	}
	return r
}

// WriteMerge implements Writer.
func (w *JSONWriter) WriteMerge(res *ledger.MergeResult) (int, error) {
	return w.writeJSON(NewMergeReport(res))
}

// MigrateReport is the JSON form of a migration result.
type MigrateReport struct {
	Total      int               `json:"total"`
	WithSKU    int               `json:"with_sku"`
	WithoutSKU int               `json:"without_sku"`
	Dropped    int               `json:"dropped"`
	NoSKU      []string          `json:"no_sku"`
	Duplicates []ledger.SKUCount `json:"duplicates"`
}

// WriteMigrate implements Writer.
func (w *JSONWriter) WriteMigrate(res *ledger.MigrateResult) (int, error) {
	r := MigrateReport{
		Total:      res.Total,
		WithSKU:    res.WithSKU,
		WithoutSKU: res.WithoutSKU,
		Dropped:    res.Dropped,
		NoSKU:      res.NoSKU,
		Duplicates: res.Duplicates,
	}
	if r.NoSKU == nil {
		r.NoSKU = []string{}
	}
	if r.Duplicates == nil {
		r.Duplicates = []ledger.SKUCount{}
	}
	return w.writeJSON(r)
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
