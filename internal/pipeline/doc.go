// Package pipeline turns detail-page URLs into scraped records.
//
// Every listing item passes through a Pipeline of Steps that enrich a
// model.Candidate: vehicle and ignore keyword checks, classification,
// category skip, price parsing, the price floor, name normalization and
// identity extraction. A step that rejects the item returns a *SkipError;
// the rejection becomes an outcome and never stops other items.
//
// FetchPool runs fetch plus pipeline for all items of one listing page with
// bounded concurrency (errgroup.SetLimit) and a randomized politeness delay
// before each request.
package pipeline
