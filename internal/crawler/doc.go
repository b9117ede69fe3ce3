// Package crawler walks the paginated catalog and keeps the ledger current.
//
// # Components
//
//   - HTTPSource: fetches raw pages, optionally through a SOCKS5 or HTTP
//     proxy, and decodes them to UTF-8.
//   - Parser: reduces listing and detail markup to model.ListingPage and
//     model.ProductPage using CSS selectors (goquery).
//   - CatalogFetcher: combines both for a catalog base URL.
//   - Controller: the page loop. It resumes after the checkpointed page,
//     runs the fetch pool over each listing page, persists the checkpoint
//     after every page and flushes accepted records to the ledger every few
//     pages and at the end of a run.
//
// # Checkpoint semantics
//
// After listing page n is fully processed the checkpoint is set to n, so an
// interrupted run resumes at n+1. A page without a next-page link ends the
// catalog; the checkpoint is then reset to 0 and the next run starts over at
// page 1. A failed listing fetch ends the run and leaves the checkpoint at
// the last completed page.
package crawler
