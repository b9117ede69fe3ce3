// Package model defines the core data structures shared across carledger.
//
// This package contains the following main types:
//   - ProductKey: the identity a ledger row is keyed by (SKU or composite)
//   - ProductPage / ListingPage: page content already reduced to fields
//   - Candidate: the working value a listing item becomes while filtered
//   - ScrapedRecord: an accepted observation, ready to be written to a ledger
//   - CrawlProgress: checkpointed pagination state of a crawl
//   - Skip: a filtered-out item together with its reason
//
// Models live in their own package because the crawler, pipeline, ledger
// and report packages all exchange them; keeping them here avoids import
// cycles.
package model
