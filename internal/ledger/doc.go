// Package ledger reads, updates and consolidates the wide-format price
// ledger: one row per product, one column per observation date.
//
// The file is a UTF-8 CSV with the columns
//
//	sku, category, car_name, image_url, <YYYY-MM-DD>...
//
// where sku is absent in legacy ledgers keyed by car_name. A byte-order
// mark is accepted on read and always written. Columns that are neither
// known nor dates are carried through unchanged.
//
// Upsert applies a batch of scraped records. Merge collapses rows that
// denote the same physical product. Migrate converts a legacy ledger to
// the SKU scheme.
package ledger
