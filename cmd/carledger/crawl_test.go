package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/carledger/internal/config"
	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

// TestNewCrawlCmd tests the crawl command flags.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	flags := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "ledger", shorthand: "l"},
		{name: "checkpoint"},
		{name: "error-log"},
		{name: "base-url", shorthand: "u"},
		{name: "max-pages", shorthand: "p", def: "10"},
		{name: "save-interval", shorthand: "s", def: "5"},
		{name: "workers", shorthand: "w", def: "3"},
		{name: "timeout", shorthand: "t", def: "30s"},
		{name: "page-delay", def: "2s"},
		{name: "proxy"},
		{name: "config", shorthand: "c"},
		{name: "metrics-addr"},
		{name: "schedule"},
		{name: "no-history", def: "false"},
		{name: "legacy-ledger", def: "false"},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if tt.def != "" && flag.DefValue != tt.def {
				t.Errorf("expected default %q, got %q", tt.def, flag.DefValue)
			}
		})
	}
}

func writeCrawlConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

// TestBuildCrawlConfig tests the precedence of flags, environment and file.
func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeCrawlConfig(t, dir, `
crawl:
  max_pages: 25
  save_interval: 7
  proxy: socks5://file:9050
  page_delay: 0s
`)

	t.Run("flags over env over file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", cfgPath, "--max-pages", "3", "--no-history"}); err != nil {
			t.Fatal(err)
		}
		env := map[string]string{
			config.EnvProxy:  "socks5://env:9050",
			config.EnvLedger: "/tmp/env.csv",
		}
		cfg, err := buildCrawlConfig(cmd, func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxPages != 3 {
			t.Errorf("flag must win, got max pages %d", cfg.MaxPages)
		}
		if cfg.SaveInterval != 7 || cfg.PageDelay != 0 {
			t.Errorf("file values must apply, got %d %v", cfg.SaveInterval, cfg.PageDelay)
		}
		if cfg.Proxy != "socks5://env:9050" || cfg.LedgerPath != "/tmp/env.csv" {
			t.Errorf("environment must win over the file, got %q %q", cfg.Proxy, cfg.LedgerPath)
		}
		if cfg.SaveHistory {
			t.Error("--no-history must disable history")
		}
		if cfg.ConfigFilePath != cfgPath {
			t.Errorf("expected config path %s, got %s", cfgPath, cfg.ConfigFilePath)
		}
		if cfg.Workers != config.DefaultWorkers {
			t.Error("unset values must keep defaults")
		}
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", cfgPath, "--proxy", "http://flag:8080", "--legacy-ledger"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildCrawlConfig(cmd, func(k string) (string, bool) {
			if k == config.EnvProxy {
				return "socks5://env:9050", true
			}
			return "", false
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Proxy != "http://flag:8080" || !cfg.LegacyLedger {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("explicit config must exist", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", filepath.Join(dir, "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildCrawlConfig(cmd, noEnv); err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		t.Parallel()

		bad := writeCrawlConfig(t, t.TempDir(), "crawl:\n  max_pagez: 1\n")
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", bad}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildCrawlConfig(cmd, noEnv); err == nil {
			t.Error("expected a parse error")
		}
	})
}

// TestCrawlCmdInvalidConfig tests that validation errors stop the command.
func TestCrawlCmdInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeCrawlConfig(t, dir, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero workers", args: []string{"--workers", "0"}},
		{name: "bad schedule", args: []string{"--schedule", "often"}},
		{name: "zero pages", args: []string{"--max-pages", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := append([]string{"crawl", "--config", cfgPath, "--no-history"}, tt.args...)
			_, err := executeRoot(t, args...)
			if err == nil || !strings.Contains(err.Error(), "configuration error") {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

// newShopServer serves a two-page catalog with three products. Extra
// titles are listed on the second page.
func newShopServer(t *testing.T, extra ...string) *httptest.Server {
	t.Helper()

	products := map[string]string{
		"/p/1": "Машинка Базова Hot Wheels Nissan Skyline HYY72",
		"/p/2": "Hot Wheels Premium Porsche 911 HKC50",
		"/p/3": "Hot Wheels Track Set Loop",
	}
	secondPage := `<div class="game-card"><a class="game-card__image" href="/p/3">c</a></div>`
	for i, title := range extra {
		path := fmt.Sprintf("/p/x%d", i)
		products[path] = title
		secondPage += fmt.Sprintf(`<div class="game-card"><a class="game-card__image" href="%s">x</a></div>`, path)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/hot-wheels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<div class="game-card"><a class="game-card__image" href="/p/1">a</a></div>
<div class="game-card"><a class="game-card__image" href="/p/2">b</a></div>
<li class="item" data-p="2">2</li>`)
		case "2":
			fmt.Fprint(w, secondPage)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/p/", func(w http.ResponseWriter, r *http.Request) {
		title, ok := products[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><head><meta property="og:image" content="/img%s.jpg"></head><body>
<div class="product_title--top"><h1>%s</h1></div>
<div class="product_info--shoping-bar"><span class="price">600 грн</span></div></body></html>`, r.URL.Path, title)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var runIDPattern = regexp.MustCompile(`Crawl run ([0-9a-f-]{36})`)

// crawlShop runs the crawl command against srv with files under dir and
// returns the run ID.
func crawlShop(t *testing.T, srv *httptest.Server, dir string, extra ...string) (string, string) {
	t.Helper()

	cfgPath := writeCrawlConfig(t, dir, fmt.Sprintf(`
crawl:
  min_jitter: 0s
  max_jitter: 0s
  db_dir: %q
`, dir))

	args := []string{
		"crawl",
		"--config", cfgPath,
		"--base-url", srv.URL + "/hot-wheels?page=",
		"--ledger", filepath.Join(dir, "prices.csv"),
		"--checkpoint", filepath.Join(dir, "checkpoint.txt"),
		"--error-log", filepath.Join(dir, "errors.log"),
		"--page-delay", "0s",
	}
	output, err := executeRoot(t, append(args, extra...)...)
	if err != nil {
		t.Fatalf("crawl failed: %v\n%s", err, output)
	}

	m := runIDPattern.FindStringSubmatch(output)
	if m == nil {
		t.Fatalf("run ID not found in output:\n%s", output)
	}
	return m[1], output
}

// TestCrawlCmdEndToEnd runs a whole crawl through the command.
func TestCrawlCmdEndToEnd(t *testing.T) {
	t.Parallel()

	srv := newShopServer(t)
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "crawl.md")

	_, output := crawlShop(t, srv, dir, "--report", reportPath)
	if !strings.Contains(output, "end reached") {
		t.Errorf("expected the catalog to wrap, got:\n%s", output)
	}

	l, err := ledger.ReadFile(filepath.Join(dir, "prices.csv"))
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	if l.Len() != 2 || !l.HasSKU {
		t.Fatalf("expected 2 rows in an SKU ledger, got %d", l.Len())
	}
	today := time.Now().Format(model.DateLayout)
	for _, r := range l.Rows {
		if r.Price(today) != "600" {
			t.Errorf("expected today's price 600 for %s, got %q", r.SKU, r.Price(today))
		}
	}

	cp, err := os.ReadFile(filepath.Join(dir, "checkpoint.txt"))
	if err != nil || strings.TrimSpace(string(cp)) != "0" {
		t.Errorf("expected checkpoint 0 after wrapping, got %q (%v)", cp, err)
	}

	md, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("expected a report: %v", err)
	}
	if !strings.Contains(string(md), "Crawl Run Report") {
		t.Errorf("unexpected report:\n%s", md)
	}
}

// TestCrawlCmdJSON tests the JSON summary and the legacy ledger layout.
func TestCrawlCmdJSON(t *testing.T) {
	t.Parallel()

	srv := newShopServer(t)
	dir := t.TempDir()

	cfgPath := writeCrawlConfig(t, dir, "crawl:\n  min_jitter: 0s\n  max_jitter: 0s\n")
	output, err := executeRoot(t,
		"crawl",
		"--config", cfgPath,
		"--base-url", srv.URL+"/hot-wheels?page=",
		"--ledger", filepath.Join(dir, "prices.csv"),
		"--checkpoint", filepath.Join(dir, "checkpoint.txt"),
		"--error-log", "",
		"--page-delay", "0s",
		"--no-history",
		"--legacy-ledger",
		"--json",
	)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if !strings.Contains(output, `"wrapped": true`) || !strings.Contains(output, `"reason": "ignored"`) {
		t.Errorf("unexpected JSON output:\n%s", output)
	}

	l, err := ledger.ReadFile(filepath.Join(dir, "prices.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if l.HasSKU {
		t.Error("expected a legacy ledger without a sku column")
	}
}

// TestCrawlCmdLegacyLedgerWithoutSKU tests that a car_name keyed ledger
// records products whose title carries no code.
func TestCrawlCmdLegacyLedgerWithoutSKU(t *testing.T) {
	t.Parallel()

	srv := newShopServer(t, "Hot Wheels Custom Design Car")

	tests := []struct {
		name   string
		setup  func(t *testing.T, ledgerPath string)
		flags  []string
		wantOK bool
	}{
		{
			name:   "legacy flag",
			flags:  []string{"--legacy-ledger"},
			wantOK: true,
		},
		{
			name: "existing legacy file",
			setup: func(t *testing.T, ledgerPath string) {
				t.Helper()
				if err := os.WriteFile(ledgerPath, []byte("category,car_name,image_url\n"), 0o600); err != nil {
					t.Fatal(err)
				}
			},
			wantOK: true,
		},
		{
			name:   "sku ledger",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			ledgerPath := filepath.Join(dir, "prices.csv")
			if tt.setup != nil {
				tt.setup(t, ledgerPath)
			}
			crawlShop(t, srv, dir, append([]string{"--no-history"}, tt.flags...)...)

			l, err := ledger.ReadFile(ledgerPath)
			if err != nil {
				t.Fatalf("failed to read ledger: %v", err)
			}
			found := false
			for _, r := range l.Rows {
				if r.Name == "Custom Design Car" {
					found = true
				}
			}
			if found != tt.wantOK {
				t.Errorf("row without a code recorded = %v, want %v (rows %d)", found, tt.wantOK, l.Len())
			}
		})
	}
}
