package config

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/nao1215/carledger/internal/catalog"
	"github.com/nao1215/carledger/internal/crawler"
	"github.com/nao1215/carledger/internal/identity"
	"github.com/nao1215/carledger/internal/model"
	"github.com/nao1215/carledger/internal/pipeline"
)

// File is the structure of the .carledger YAML file. Every section is
// optional; omitted values keep their defaults.
type File struct {
	// Crawl overrides crawl settings.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// HTTP configures requests to the shop.
	HTTP HTTPSection `yaml:"http,omitempty"`

	// Categories maps a category name (case-insensitive) to its settings.
	Categories map[string]CategoryConfig `yaml:"categories,omitempty"`

	// Rules replaces the classification rules when non-empty. Rules are
	// evaluated in order; titles matching none are MainLine.
	Rules []catalog.Rule `yaml:"rules,omitempty"`

	// VehicleKeywords replaces the phrases that mark a title as a car.
	VehicleKeywords []string `yaml:"vehicle_keywords,omitempty"`

	// IgnoreWords replaces the phrases that reject accessory listings.
	IgnoreWords []string `yaml:"ignore_words,omitempty"`

	// Prefixes replaces the leading phrases stripped from product names.
	Prefixes []string `yaml:"prefixes,omitempty"`

	// Selectors overrides individual CSS selectors.
	Selectors crawler.Selectors `yaml:"selectors,omitempty"`
}

// CrawlSection holds crawl settings that can also be given as flags.
type CrawlSection struct {
	BaseURL      string         `yaml:"base_url,omitempty"`
	Ledger       string         `yaml:"ledger,omitempty"`
	Checkpoint   string         `yaml:"checkpoint,omitempty"`
	ErrorLog     string         `yaml:"error_log,omitempty"`
	MaxPages     int            `yaml:"max_pages,omitempty"`
	SaveInterval int            `yaml:"save_interval,omitempty"`
	Workers      int            `yaml:"workers,omitempty"`
	Timeout      time.Duration  `yaml:"timeout,omitempty"`
	PageDelay    *time.Duration `yaml:"page_delay,omitempty"`
	MinJitter    *time.Duration `yaml:"min_jitter,omitempty"`
	MaxJitter    *time.Duration `yaml:"max_jitter,omitempty"`
	Proxy        string         `yaml:"proxy,omitempty"`
	MetricsAddr  string         `yaml:"metrics_addr,omitempty"`
	Schedule     string         `yaml:"schedule,omitempty"`
	DBDir        string         `yaml:"db_dir,omitempty"`
	LegacyLedger bool           `yaml:"legacy_ledger,omitempty"`
	AllowNoSKU   bool           `yaml:"allow_no_sku,omitempty"`
}

// HTTPSection configures outgoing requests.
type HTTPSection struct {
	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookie is sent with every request. Format: "name=value; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxBodySize limits the bytes read per response.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`
}

// CategoryConfig holds per-category settings.
type CategoryConfig struct {
	// Floor overrides the minimum accepted price.
	Floor *float64 `yaml:"floor,omitempty"`

	// Skip drops every item of the category.
	Skip bool `yaml:"skip,omitempty"`
}

// Floors returns the default floors with the file's overrides applied.
func (f *File) Floors() (catalog.Floors, error) {
	floors := catalog.DefaultFloors()
	for name, cc := range f.Categories {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if cc.Floor == nil {
			continue
		}
		if *cc.Floor < 0 {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFloor, name, *cc.Floor)
		}
		floors[cat] = *cc.Floor
	}
	return floors, nil
}

// SkipCategories returns the categories marked skip.
func (f *File) SkipCategories() (map[model.Category]bool, error) {
	skip := make(map[model.Category]bool)
	for name, cc := range f.Categories {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if cc.Skip {
			skip[cat] = true
		}
	}
	return skip, nil
}

// ItemRules builds the item pipeline rules from defaults and the file.
func (f *File) ItemRules() (pipeline.Rules, error) {
	floors, err := f.Floors()
	if err != nil {
		return pipeline.Rules{}, err
	}
	skip, err := f.SkipCategories()
	if err != nil {
		return pipeline.Rules{}, err
	}

	rules := catalog.DefaultRules()
	if len(f.Rules) > 0 {
		rules = make([]catalog.Rule, 0, len(f.Rules))
		for _, r := range f.Rules {
			cat, err := ParseCategory(string(r.Category))
			if err != nil {
				return pipeline.Rules{}, err
			}
			r.Category = cat
			rules = append(rules, r)
		}
	}

	return pipeline.Rules{
		Filter: catalog.NewFilter(
			orDefault(f.VehicleKeywords, catalog.DefaultVehicleKeywords()),
			orDefault(f.IgnoreWords, catalog.DefaultIgnoreWords()),
		),
		Classifier:     catalog.NewClassifier(rules, floors),
		Normalizer:     catalog.NewNormalizer(orDefault(f.Prefixes, catalog.DefaultPrefixes())),
		Extractor:      identity.NewExtractor(),
		SkipCategories: skip,
		RequireSKU:     !f.Crawl.AllowNoSKU && !f.Crawl.LegacyLedger,
	}, nil
}

// EffectiveSelectors returns the file's selectors over the defaults.
func (f *File) EffectiveSelectors() crawler.Selectors {
	return f.Selectors.Merge(crawler.DefaultSelectors())
}

// Headers returns a copy of the extra request headers.
func (f *File) Headers() map[string]string {
	return maps.Clone(f.HTTP.Headers)
}

// ParseCategory resolves a category name case-insensitively. Spaces,
// dashes and underscores are ignored, so "super_treasure_hunt" matches
// "Super Treasure Hunt".
func ParseCategory(name string) (model.Category, error) {
	want := categoryToken(name)
	for _, c := range model.AllCategories() {
		if categoryToken(string(c)) == want {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

func categoryToken(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
