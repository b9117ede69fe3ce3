package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/carledger/internal/checkpoint"
	"github.com/nao1215/carledger/internal/config"
	"github.com/nao1215/carledger/internal/crawler"
	"github.com/nao1215/carledger/internal/database"
	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/log"
	"github.com/nao1215/carledger/internal/metrics"
	"github.com/nao1215/carledger/internal/model"
	"github.com/nao1215/carledger/internal/pipeline"
	"github.com/nao1215/carledger/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the catalog and record today's prices",
		Long: `Crawl fetches listing pages starting after the checkpoint, visits every
product page, filters and classifies the items and writes the accepted
prices into today's column of the ledger.

The ledger is flushed every --save-interval pages and once more at the end,
so an interrupted run loses at most the pages since the last flush. The
checkpoint is updated after every completed page and reset to 0 when the
end of the catalog is reached.

Settings are resolved in this order: flags, environment variables
(CARLEDGER_BASE_URL, CARLEDGER_PROXY, CARLEDGER_METRICS_ADDR,
CARLEDGER_LEDGER, also read from .env), the configuration file, defaults.

Examples:
  # Crawl the next 10 pages into the default ledger
  carledger crawl

  # Crawl 50 pages through a local SOCKS proxy
  carledger crawl --max-pages 50 --proxy socks5://127.0.0.1:9050

  # Crawl every six hours and expose Prometheus metrics
  carledger crawl --schedule "0 */6 * * *" --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("ledger", "l", "",
		"Ledger CSV file (default: prices.csv in the data directory)")
	cmd.Flags().String("checkpoint", "",
		"Checkpoint file (default: checkpoint.txt in the data directory)")
	cmd.Flags().String("error-log", "",
		"Failure log file (default: errors.log in the data directory)")
	cmd.Flags().StringP("base-url", "u", crawler.DefaultBaseURL,
		"Listing URL prefix; the page number is appended")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of listing pages per run")
	cmd.Flags().IntP("save-interval", "s", config.DefaultSaveInterval,
		"Number of pages between ledger flushes")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent product page fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("page-delay", config.DefaultPageDelay,
		"Minimum interval between listing page requests")
	cmd.Flags().String("proxy", "",
		"Proxy URL (http://, https://, socks5:// or socks5h://)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .carledger in current or home directory)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().String("schedule", "",
		"Cron expression; run repeatedly until interrupted")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().Bool("legacy-ledger", false,
		"Key a new ledger by car_name instead of sku")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON")
	cmd.Flags().StringP("report", "r", "",
		"Write a Markdown run report to this file")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	if cfg.ConfigFilePath != "" {
		logger.Info("configuration loaded", "path", cfg.ConfigFilePath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	reportPath, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}

	r := &crawlRunner{
		cfg:        cfg,
		logger:     logger,
		out:        cmd.OutOrStdout(),
		jsonOut:    jsonOut,
		reportPath: reportPath,
	}

	if cfg.MetricsAddr != "" {
		r.metrics = metrics.New()
		go func() {
			if err := r.metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	if cfg.SaveHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close() //nolint:errcheck // closing on exit
		logger.Debug("recording crawl history", "path", db.Path())
		r.history = db
	}

	if cfg.Schedule == "" {
		return r.runOnce(ctx)
	}
	return r.runScheduled(ctx)
}

// buildCrawlConfig resolves the configuration from defaults, the config
// file, the environment and the command flags.
func buildCrawlConfig(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file, it must exist.
	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(lookupEnv)

	flags := cmd.Flags()
	err = errors.Join(
		stringFlag(cmd, "ledger", &cfg.LedgerPath),
		stringFlag(cmd, "checkpoint", &cfg.CheckpointPath),
		stringFlag(cmd, "error-log", &cfg.ErrorLogPath),
		stringFlag(cmd, "base-url", &cfg.BaseURL),
		stringFlag(cmd, "proxy", &cfg.Proxy),
		stringFlag(cmd, "metrics-addr", &cfg.MetricsAddr),
		stringFlag(cmd, "schedule", &cfg.Schedule),
		intFlag(cmd, "max-pages", &cfg.MaxPages),
		intFlag(cmd, "save-interval", &cfg.SaveInterval),
		intFlag(cmd, "workers", &cfg.Workers),
		durationFlag(cmd, "timeout", &cfg.Timeout),
		durationFlag(cmd, "page-delay", &cfg.PageDelay),
	)
	if err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}
	legacy, err := flags.GetBool("legacy-ledger")
	if err != nil {
		return nil, err
	}
	if legacy {
		cfg.LegacyLedger = true
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// stringFlag copies the named flag into dst when it was set explicitly.
func stringFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// intFlag copies the named flag into dst when it was set explicitly.
func intFlag(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// durationFlag copies the named flag into dst when it was set explicitly.
func durationFlag(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// crawlRunner holds what outlives a single crawl run.
type crawlRunner struct {
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
	jsonOut    bool
	reportPath string
	metrics    *metrics.Metrics
	history    *database.HistoryDB
}

// runOnce performs one crawl run and reports it.
func (r *crawlRunner) runOnce(ctx context.Context) error {
	ctrl, err := newController(r.cfg, r.logger, r.metrics)
	if err != nil {
		return err
	}

	summary, runErr := ctrl.Run(ctx)
	if summary == nil {
		return runErr
	}

	if err := r.report(summary); err != nil {
		r.logger.Error("report failed", "run", summary.ID, "error", err)
	}
	if r.history != nil {
		// The run context may already be cancelled; the record is still wanted.
		if err := r.history.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
			r.logger.Error("failed to save run history", "run", summary.ID, "error", err)
		}
	}
	return runErr
}

// runScheduled runs crawls on the configured cron schedule until ctx is
// cancelled. Overlapping runs are skipped.
func (r *crawlRunner) runScheduled(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(config.ScheduleParser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(r.cfg.Schedule, func() {
		if err := r.runOnce(ctx); err != nil {
			r.logger.Error("scheduled crawl failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("%w: %q: %v", config.ErrInvalidSchedule, r.cfg.Schedule, err)
	}

	c.Start()
	fmt.Fprintf(r.out, "Crawling on schedule %q, press Ctrl+C to stop\n", r.cfg.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// report prints the run summary and writes the optional Markdown report.
func (r *crawlRunner) report(summary *model.RunSummary) error {
	var w report.Writer = report.NewSimpleWriter(r.out, report.WithVerbose(r.cfg.Verbose))
	if r.jsonOut {
		w = report.NewJSONWriter(r.out, report.WithPrettyPrint())
	}
	if _, err := w.WriteCrawl(summary); err != nil {
		return err
	}

	if r.reportPath == "" {
		return nil
	}
	return writeReportFile(r.reportPath, func(md report.Writer) error {
		_, err := md.WriteCrawl(summary)
		return err
	})
}

// newController wires the page source, parser, fetch pool, checkpoint,
// ledger and failure log into a crawl controller. m may be nil.
func newController(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*crawler.Controller, error) {
	sourceOpts := []crawler.SourceOption{
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithSourceLogger(logger),
		crawler.WithHeaders(cfg.File.Headers()),
	}
	if cfg.UserAgent != "" {
		sourceOpts = append(sourceOpts, crawler.WithUserAgent(cfg.UserAgent))
	}
	if cfg.File.HTTP.Cookie != "" {
		sourceOpts = append(sourceOpts, crawler.WithCookie(cfg.File.HTTP.Cookie))
	}
	if cfg.MaxBodySize > 0 {
		sourceOpts = append(sourceOpts, crawler.WithMaxBodySize(cfg.MaxBodySize))
	}
	if cfg.Proxy != "" {
		sourceOpts = append(sourceOpts, crawler.WithProxy(cfg.Proxy))
	}
	source, err := crawler.NewHTTPSource(sourceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create page source: %w", err)
	}

	fetcher, err := crawler.NewCatalogFetcher(source, crawler.NewParser(cfg.File.EffectiveSelectors()), cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	storeOpts := []ledger.StoreOption{ledger.WithStoreLogger(logger)}
	if cfg.LegacyLedger {
		storeOpts = append(storeOpts, ledger.WithLegacyScheme())
	}
	store := ledger.NewFileStore(cfg.LedgerPath, storeOpts...)
	skuLedger, err := store.KeyedBySKU()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	rules, err := cfg.File.ItemRules()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if !skuLedger {
		// car_name keyed ledgers can store items without a SKU.
		rules.RequireSKU = false
	}
	pool := pipeline.NewFetchPool(fetcher, pipeline.NewItemPipeline(rules, logger),
		pipeline.WithConcurrency(cfg.Workers),
		pipeline.WithJitter(cfg.MinJitter, cfg.MaxJitter),
		pipeline.WithFetchTimeout(cfg.Timeout),
		pipeline.WithPoolLogger(logger),
	)

	ctrlOpts := []crawler.ControllerOption{
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithSaveInterval(cfg.SaveInterval),
		crawler.WithPageDelay(cfg.PageDelay),
		crawler.WithLogger(logger),
	}
	if cfg.ErrorLogPath != "" {
		failures := log.NewFailureLog(cfg.ErrorLogPath)
		logger.Debug("logging fetch failures", "path", failures.Path())
		ctrlOpts = append(ctrlOpts, crawler.WithFailureLog(failures))
	}
	if m != nil {
		ctrlOpts = append(ctrlOpts, crawler.WithObserver(m))
	}

	progress := checkpoint.NewFileStore(cfg.CheckpointPath)
	logger.Debug("crawl files", "ledger", store.Path(), "sku_ledger", skuLedger, "checkpoint", progress.Path())

	return crawler.NewController(fetcher, pool, progress, store, ctrlOpts...), nil
}
