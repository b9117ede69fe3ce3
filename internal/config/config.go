package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"

	"github.com/nao1215/carledger/internal/crawler"
	"github.com/nao1215/carledger/internal/pipeline"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "carledger"

	DefaultLedgerFile     = "prices.csv"
	DefaultCheckpointFile = "checkpoint.txt"
	DefaultErrorLogFile   = "errors.log"

	DefaultMaxPages     = crawler.DefaultMaxPages
	DefaultSaveInterval = crawler.DefaultSaveInterval
	DefaultPageDelay    = crawler.DefaultPageDelay
	DefaultWorkers      = pipeline.DefaultConcurrency
	DefaultTimeout      = pipeline.DefaultFetchTimeout
	DefaultMinJitter    = pipeline.DefaultMinJitter
	DefaultMaxJitter    = pipeline.DefaultMaxJitter
	DefaultMaxBodySize  = crawler.DefaultMaxBodySize
)

// Config holds every option of a carledger invocation. It is built once by
// the command layer (defaults, file, environment, flags) and passed down.
type Config struct {
	// LedgerPath is the CSV ledger updated by crawls.
	LedgerPath string

	// CheckpointPath holds the last completed listing page.
	CheckpointPath string

	// ErrorLogPath is the append-only failure log.
	ErrorLogPath string

	// BaseURL is the listing URL prefix; the page number is appended.
	BaseURL string

	// MaxPages bounds the listing pages of one run.
	MaxPages int

	// SaveInterval is the number of pages between ledger flushes.
	SaveInterval int

	// Workers is the number of concurrent product fetches.
	Workers int

	// Timeout applies to each HTTP request.
	Timeout time.Duration

	// PageDelay is the minimum interval between listing requests.
	PageDelay time.Duration

	// MinJitter and MaxJitter bound the random delay before each product
	// request.
	MinJitter time.Duration
	MaxJitter time.Duration

	// Proxy is an optional socks5:// or http:// proxy URL.
	Proxy string

	// UserAgent overrides the User-Agent header when set.
	UserAgent string

	// MaxBodySize limits the bytes read per response. Zero uses the default.
	MaxBodySize int64

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9090").
	MetricsAddr string

	// Schedule is a cron expression; when set, crawl runs repeatedly.
	Schedule string

	// DBDir is the directory of the run history database.
	DBDir string

	// SaveHistory records runs in the history database.
	SaveHistory bool

	// LegacyLedger keys a newly created ledger by car_name instead of sku.
	LegacyLedger bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the YAML file in use, empty if none.
	ConfigFilePath string

	// File is the loaded YAML file. Never nil after NewConfig.
	File *File
}

// NewConfig creates a Config with default values. Files default to the
// XDG data directory.
func NewConfig() *Config {
	dataDir := XDGDataDir()
	return &Config{
		LedgerPath:     filepath.Join(dataDir, DefaultLedgerFile),
		CheckpointPath: filepath.Join(dataDir, DefaultCheckpointFile),
		ErrorLogPath:   filepath.Join(dataDir, DefaultErrorLogFile),
		BaseURL:        crawler.DefaultBaseURL,
		MaxPages:       DefaultMaxPages,
		SaveInterval:   DefaultSaveInterval,
		Workers:        DefaultWorkers,
		Timeout:        DefaultTimeout,
		PageDelay:      DefaultPageDelay,
		MinJitter:      DefaultMinJitter,
		MaxJitter:      DefaultMaxJitter,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          dataDir,
		SaveHistory:    true,
		File:           &File{},
	}
}

// XDGDataDir returns the data directory (~/.local/share/carledger on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory (~/.config/carledger on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies the crawl section of f over c. Empty values are ignored.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f

	s := f.Crawl
	setString(&c.LedgerPath, s.Ledger)
	setString(&c.CheckpointPath, s.Checkpoint)
	setString(&c.ErrorLogPath, s.ErrorLog)
	setString(&c.BaseURL, s.BaseURL)
	setString(&c.Proxy, s.Proxy)
	setString(&c.MetricsAddr, s.MetricsAddr)
	setString(&c.Schedule, s.Schedule)
	setString(&c.DBDir, s.DBDir)
	setString(&c.UserAgent, f.HTTP.UserAgent)
	setInt(&c.MaxPages, s.MaxPages)
	setInt(&c.SaveInterval, s.SaveInterval)
	setInt(&c.Workers, s.Workers)
	setDuration(&c.Timeout, s.Timeout)
	setOptionalDuration(&c.PageDelay, s.PageDelay)
	setOptionalDuration(&c.MinJitter, s.MinJitter)
	setOptionalDuration(&c.MaxJitter, s.MaxJitter)
	if s.LegacyLedger {
		c.LegacyLedger = true
	}
	if f.HTTP.MaxBodySize > 0 {
		c.MaxBodySize = f.HTTP.MaxBodySize
	}
}

// ScheduleParser parses five-field cron expressions.
var ScheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrInvalidBaseURL
	}
	if c.LedgerPath == "" || c.CheckpointPath == "" {
		return ErrEmptyPath
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.SaveInterval <= 0 {
		return ErrInvalidSaveInterval
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PageDelay < 0 {
		return ErrInvalidPageDelay
	}
	if c.MinJitter < 0 || c.MaxJitter < c.MinJitter {
		return ErrInvalidJitter
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Schedule != "" {
		if _, err := ScheduleParser.Parse(c.Schedule); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, c.Schedule, err)
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setOptionalDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
