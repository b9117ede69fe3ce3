// Package database stores crawl run history in SQLite.
//
// Each crawl run is saved once it finishes, together with the items it
// skipped, so operators can see which pages were covered, how many records
// reached the ledger and which product pages keep failing.
//
// The database is a single file (modernc.org/sqlite, no cgo) kept next to the
// ledger's default location. It is not needed for crawling; the ledger and
// checkpoint files remain the source of truth.
package database
