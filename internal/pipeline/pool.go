package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/carledger/internal/model"
)

// Default pool settings.
const (
	DefaultConcurrency  = 3
	DefaultMinJitter    = 1 * time.Second
	DefaultMaxJitter    = 3 * time.Second
	DefaultFetchTimeout = 30 * time.Second
)

// ProductFetcher fetches and extracts one detail page.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, url string) (model.ProductPage, error)
}

// Outcome is the result for one URL. Exactly one of Record and Skip is set.
type Outcome struct {
	URL    string
	Record *model.ScrapedRecord
	Skip   *model.Skip
}

// FetchPool fetches detail pages concurrently and runs each through a
// fresh item pipeline.
type FetchPool struct {
	fetcher     ProductFetcher
	factory     func() *Pipeline
	concurrency int
	minJitter   time.Duration
	maxJitter   time.Duration
	timeout     time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// PoolOption configures a FetchPool.
type PoolOption func(*FetchPool)

// WithConcurrency sets the maximum number of concurrent fetches.
func WithConcurrency(n int) PoolOption {
	return func(p *FetchPool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithJitter sets the range of the random delay before each fetch.
// A max not greater than min yields a fixed delay of min.
func WithJitter(minDelay, maxDelay time.Duration) PoolOption {
	return func(p *FetchPool) {
		if minDelay < 0 {
			minDelay = 0
		}
		p.minJitter = minDelay
		p.maxJitter = maxDelay
	}
}

// WithFetchTimeout sets the timeout of a single detail fetch.
func WithFetchTimeout(d time.Duration) PoolOption {
	return func(p *FetchPool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *FetchPool) {
		p.logger = logger
	}
}

// NewFetchPool creates a FetchPool. factory is called once per item.
func NewFetchPool(fetcher ProductFetcher, factory func() *Pipeline, opts ...PoolOption) *FetchPool {
	p := &FetchPool{
		fetcher:     fetcher,
		factory:     factory,
		concurrency: DefaultConcurrency,
		minJitter:   DefaultMinJitter,
		maxJitter:   DefaultMaxJitter,
		timeout:     DefaultFetchTimeout,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Concurrency returns the worker limit.
func (p *FetchPool) Concurrency() int {
	return p.concurrency
}

// Process fetches all urls and calls emit once per processed URL, in
// completion order. emit is called from worker goroutines and must be safe
// for concurrent use.
//
// Item failures are outcomes, not errors. The returned error is non-nil only
// when ctx is cancelled; URLs not yet started at that point get no outcome.
func (p *FetchPool) Process(ctx context.Context, urls []string, observed time.Time, emit func(Outcome)) error {
	p.logger.Debug("processing listing items",
		"items", len(urls),
		"concurrency", p.concurrency,
	)

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if out, ok := p.processOne(ctx, url, observed); ok {
				emit(out)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors
	return ctx.Err()
}

func (p *FetchPool) processOne(ctx context.Context, url string, observed time.Time) (Outcome, bool) {
	if err := p.sleep(ctx, p.jitter()); err != nil {
		return Outcome{}, false
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	page, err := p.fetcher.FetchProduct(fetchCtx, url)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, false
		}
		return p.skipped(url, err), true
	}
	if page.URL == "" {
		page.URL = url
	}

	c := model.NewCandidate(page, observed)
	if err := p.factory().Execute(ctx, c); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, false
		}
		return p.skipped(url, err), true
	}

	rec := c.Record()
	p.logger.Debug("item accepted",
		"url", url,
		"key", rec.Key.String(),
		"category", rec.Category,
		"price", rec.Price,
	)
	return Outcome{URL: url, Record: &rec}, true
}

func (p *FetchPool) skipped(url string, err error) Outcome {
	skip := AsSkip(url, err)
	if skip.Reason.IsFailure() {
		p.logger.Warn("item failed", "url", url, "reason", skip.Reason, "detail", skip.Detail)
	} else {
		p.logger.Debug("item skipped", "url", url, "reason", skip.Reason, "detail", skip.Detail)
	}
	return Outcome{URL: url, Skip: &skip}
}

func (p *FetchPool) jitter() time.Duration {
	if p.maxJitter <= p.minJitter {
		return p.minJitter
	}
	return p.minJitter + rand.N(p.maxJitter-p.minJitter) //nolint:gosec // politeness delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
