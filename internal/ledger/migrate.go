package ledger

import (
	"cmp"
	"slices"

	"github.com/nao1215/carledger/internal/identity"
)

// MigrateOptions controls Migrate.
type MigrateOptions struct {
	// KeepNoSKU keeps rows without a SKU (with an empty sku cell) instead of
	// dropping them.
	KeepNoSKU bool

	// Force recomputes the sku column of a ledger that already has one.
	Force bool
}

// SKUCount is a SKU shared by several rows.
type SKUCount struct {
	SKU   string `json:"sku"`
	Count int    `json:"count"`
}

// MigrateResult is the outcome of Migrate.
type MigrateResult struct {
	// Ledger is the migrated ledger. The input ledger is not modified.
	Ledger *Ledger

	Total      int
	WithSKU    int
	WithoutSKU int

	// Dropped is the number of rows removed for lack of a SKU.
	Dropped int

	// NoSKU lists the names of rows without a SKU in row order.
	NoSKU []string

	// Duplicates lists SKUs found in more than one row, most frequent first.
	Duplicates []SKUCount
}

// Migrate derives the sku column of every row from car_name.
func Migrate(l *Ledger, opts MigrateOptions) (*MigrateResult, error) {
	if l.HasSKU && !opts.Force {
		return nil, ErrAlreadyMigrated
	}

	res := &MigrateResult{
		Ledger: New(true),
		Total:  l.Len(),
	}
	res.Ledger.Extra = append([]string(nil), l.Extra...)
	for _, d := range l.dates {
		res.Ledger.AddDate(d)
	}

	counts := make(map[string]int)
	var order []string
	for _, r := range l.Rows {
		out := r.clone()
		sku, err := identity.ExtractSKU(r.Name)
		if err != nil {
			res.WithoutSKU++
			res.NoSKU = append(res.NoSKU, r.Name)
			if !opts.KeepNoSKU {
				res.Dropped++
				continue
			}
			out.SKU = ""
		} else {
			res.WithSKU++
			out.SKU = sku
			if counts[sku] == 0 {
				order = append(order, sku)
			}
			counts[sku]++
		}
		res.Ledger.Rows = append(res.Ledger.Rows, out)
	}

	for _, sku := range order {
		if counts[sku] > 1 {
			res.Duplicates = append(res.Duplicates, SKUCount{SKU: sku, Count: counts[sku]})
		}
	}
	slices.SortStableFunc(res.Duplicates, func(a, b SKUCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return res, nil
}
