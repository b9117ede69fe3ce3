package ledger

import (
	"fmt"

	"github.com/nao1215/carledger/internal/model"
)

// UpsertResult summarizes one Upsert call.
type UpsertResult struct {
	Inserted int
	Updated  int

	// Rejected lists records that cannot be keyed in this ledger.
	Rejected []model.Skip
}

// Applied returns the number of records written.
func (r UpsertResult) Applied() int {
	return r.Inserted + r.Updated
}

// rowKey returns the key a row is indexed by, or "" when it has none.
func (l *Ledger) rowKey(r *Row) string {
	if l.HasSKU {
		return r.SKU
	}
	return r.Name
}

// recordKey returns the key a record is written under.
func (l *Ledger) recordKey(rec model.ScrapedRecord) (string, error) {
	if !l.HasSKU {
		return rec.Name, nil
	}
	if !rec.Key.IsSKU() {
		return "", fmt.Errorf("key %s cannot be written to a sku ledger", rec.Key)
	}
	return rec.Key.Value, nil
}

func (l *Ledger) index() map[string]*Row {
	idx := make(map[string]*Row, len(l.Rows))
	for _, r := range l.Rows {
		k := l.rowKey(r)
		if k == "" {
			continue
		}
		if _, dup := idx[k]; !dup {
			idx[k] = r
		}
	}
	return idx
}

// Upsert applies records in order.
//
// A record whose key has no row appends one. Otherwise the row takes the
// record's category and name, its image when the record has one, and the
// price at the record's date. Applying the same batch again leaves the
// ledger unchanged. SKU ledgers are keyed by sku, legacy ledgers by car_name.
// The date of every record becomes a column, rejected records included.
func Upsert(l *Ledger, records []model.ScrapedRecord) UpsertResult {
	var res UpsertResult
	idx := l.index()

	for _, rec := range records {
		date := rec.ObservedDate()
		l.AddDate(date)

		key, err := l.recordKey(rec)
		if err != nil || key == "" {
			detail := "empty key"
			if err != nil {
				detail = err.Error()
			}
			res.Rejected = append(res.Rejected, model.Skip{
				URL:    rec.SourceURL,
				Reason: model.SkipMissingSKU,
				Detail: detail,
			})
			continue
		}

		row, ok := idx[key]
		if !ok {
			row = NewRow()
			if l.HasSKU {
				row.SKU = key
			}
			l.Rows = append(l.Rows, row)
			idx[key] = row
			res.Inserted++
		} else {
			res.Updated++
		}

		row.Category = string(rec.Category)
		row.Name = rec.Name
		if rec.ImageURL != "" {
			row.ImageURL = rec.ImageURL
		}
		row.Prices[date] = rec.PriceCell()
	}
	return res
}
