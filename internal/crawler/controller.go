package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nao1215/carledger/internal/checkpoint"
	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
	"github.com/nao1215/carledger/internal/pipeline"
)

// Default controller settings.
const (
	DefaultMaxPages     = 10
	DefaultSaveInterval = 5
	DefaultPageDelay    = 2 * time.Second
)

// ListingFetcher fetches one listing page.
type ListingFetcher interface {
	FetchListing(ctx context.Context, page int) (model.ListingPage, error)
}

// Flusher writes a batch of records to the ledger.
type Flusher interface {
	Flush(records []model.ScrapedRecord) (ledger.UpsertResult, error)
}

// Observer is notified of crawl events. metrics.Metrics implements it.
type Observer interface {
	PageCompleted(page int)
	RecordAccepted(rec model.ScrapedRecord)
	ItemSkipped(s model.Skip)
	Flushed(written int, d time.Duration)
	CatalogWrapped()
}

// SkipRecorder persists failed items. log.FailureLog implements it.
type SkipRecorder interface {
	Record(skips ...model.Skip) error
}

// Controller runs the resumable page loop.
type Controller struct {
	listings     ListingFetcher
	pool         *pipeline.FetchPool
	store        checkpoint.Store
	flusher      Flusher
	maxPages     int
	saveInterval int
	limiter      *rate.Limiter
	observer     Observer
	failures     SkipRecorder
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	batch  []model.ScrapedRecord
	skips  []model.Skip
	logged int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMaxPages bounds the listing pages fetched per run.
func WithMaxPages(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithSaveInterval sets how many pages are processed between flushes.
func WithSaveInterval(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.saveInterval = n
		}
	}
}

// WithPageDelay sets the minimum interval between listing requests.
// Zero disables pacing.
func WithPageDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.limiter = newPageLimiter(d)
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithFailureLog sets where failed items are recorded.
func WithFailureLog(r SkipRecorder) ControllerOption {
	return func(c *Controller) {
		c.failures = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock sets the time source for observation dates.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a Controller.
func NewController(listings ListingFetcher, pool *pipeline.FetchPool, store checkpoint.Store, flusher Flusher, opts ...ControllerOption) *Controller {
	c := &Controller{
		listings:     listings,
		pool:         pool,
		store:        store,
		flusher:      flusher,
		maxPages:     DefaultMaxPages,
		saveInterval: DefaultSaveInterval,
		limiter:      newPageLimiter(DefaultPageDelay),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}

	return c
}

func newPageLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Run crawls from the page after the checkpoint until the page budget is
// spent, the catalog ends, a listing fetch fails or ctx is cancelled.
//
// The returned summary is always non-nil once the checkpoint was loaded.
// The error is non-nil for checkpoint and ledger I/O failures only;
// cancellation and listing failures end the run cleanly.
func (c *Controller) Run(ctx context.Context) (*model.RunSummary, error) {
	last, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	progress := model.NewCrawlProgress(last, c.maxPages)
	observed := c.now()
	summary := &model.RunSummary{
		ID:        uuid.NewString(),
		StartedAt: observed,
		StartPage: progress.NextPage(),
	}
	c.reset()

	logger := c.logger.With("run", summary.ID)
	logger.Info("crawl started", "start_page", summary.StartPage, "target_page", progress.TargetPage)

	runErr := c.loop(ctx, logger, &progress, summary, observed)

	if err := c.flush(logger, summary); err != nil && runErr == nil {
		runErr = err
	}
	c.recordFailures(logger)

	c.mu.Lock()
	summary.Skips = append(summary.Skips, c.skips...)
	c.mu.Unlock()

	summary.Pages = progress.PagesThisRun
	summary.FinishedAt = c.now()
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	logger.Info("crawl finished",
		"pages", summary.Pages,
		"last_page", summary.LastPage,
		"accepted", summary.Accepted,
		"written", summary.Written,
		"skipped", len(summary.Skips),
		"wrapped", summary.Wrapped,
	)
	return summary, runErr
}

func (c *Controller) loop(ctx context.Context, logger *slog.Logger, progress *model.CrawlProgress, summary *model.RunSummary, observed time.Time) error {
	for !progress.BudgetExhausted(c.maxPages) {
		if err := c.limiter.Wait(ctx); err != nil {
			logger.Info("crawl cancelled", "next_page", progress.NextPage())
			return nil
		}

		page := progress.NextPage()
		listing, err := c.listings.FetchListing(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("crawl cancelled", "next_page", page)
				return nil
			}
			logger.Warn("listing page failed; ending run", "page", page, "error", err)
			summary.Error = fmt.Sprintf("listing page %d: %v", page, err)
			return nil
		}

		if len(listing.ProductURLs) == 0 {
			logger.Info("listing page has no items; catalog ended", "page", page)
			return c.wrap(progress, summary)
		}

		logger.Debug("processing listing page", "page", page, "items", len(listing.ProductURLs))
		if err := c.pool.Process(ctx, listing.ProductURLs, observed, c.accept); err != nil {
			logger.Info("crawl cancelled during page", "page", page)
			return nil
		}
		c.recordFailures(logger)

		progress.Complete(page)
		summary.LastPage = page
		c.observer.PageCompleted(page)

		if !listing.HasNext {
			logger.Info("last catalog page reached", "page", page)
			return c.wrap(progress, summary)
		}
		if err := c.store.Save(progress.LastCompleted); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		if progress.PagesThisRun%c.saveInterval == 0 {
			if err := c.flush(logger, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// wrap resets the checkpoint so the next run starts at page 1.
func (c *Controller) wrap(progress *model.CrawlProgress, summary *model.RunSummary) error {
	progress.Wrap()
	summary.Wrapped = true
	c.observer.CatalogWrapped()
	if err := c.store.Save(progress.LastCompleted); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// accept is the pool's emit callback.
func (c *Controller) accept(out pipeline.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Record != nil {
		c.batch = append(c.batch, *out.Record)
		c.observer.RecordAccepted(*out.Record)
		return
	}
	if out.Skip != nil {
		c.skips = append(c.skips, *out.Skip)
		c.observer.ItemSkipped(*out.Skip)
	}
}

// recordFailures appends failures not yet logged to the failure log.
func (c *Controller) recordFailures(logger *slog.Logger) {
	c.mu.Lock()
	pending := append([]model.Skip(nil), c.skips[c.logged:]...)
	c.logged = len(c.skips)
	c.mu.Unlock()

	if c.failures == nil || len(pending) == 0 {
		return
	}
	if err := c.failures.Record(pending...); err != nil {
		logger.Warn("failed to write failure log", "error", err)
	}
}

// flush writes the pending batch, if any, and clears it. A failed batch is
// kept for the next flush.
func (c *Controller) flush(logger *slog.Logger, summary *model.RunSummary) error {
	c.mu.Lock()
	batch := c.batch
	c.batch = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	result, err := c.flusher.Flush(batch)
	if err != nil {
		c.mu.Lock()
		c.batch = append(batch, c.batch...)
		c.mu.Unlock()
		return fmt.Errorf("failed to flush %d records: %w", len(batch), err)
	}

	summary.Accepted += len(batch)
	summary.Written += result.Applied()
	summary.Flushes++
	c.observer.Flushed(result.Applied(), time.Since(start))

	c.mu.Lock()
	c.skips = append(c.skips, result.Rejected...)
	c.mu.Unlock()
	for _, s := range result.Rejected {
		c.observer.ItemSkipped(s)
	}
	c.recordFailures(logger)

	logger.Info("ledger flushed",
		"records", len(batch),
		"inserted", result.Inserted,
		"updated", result.Updated,
		"rejected", len(result.Rejected),
	)
	return nil
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batch = nil
	c.skips = nil
	c.logged = 0
}

type nopObserver struct{}

func (nopObserver) PageCompleted(int) {}

func (nopObserver) RecordAccepted(model.ScrapedRecord) {}

func (nopObserver) ItemSkipped(model.Skip) {}

func (nopObserver) Flushed(int, time.Duration) {}

func (nopObserver) CatalogWrapped() {}
