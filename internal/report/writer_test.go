package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

func testRun() *model.RunSummary {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.RunSummary{
		ID:         "5f1c2a9e-0000-4000-8000-000000000001",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Minute),
		StartPage:  8,
		LastPage:   10,
		Pages:      3,
		Accepted:   41,
		Written:    40,
		Flushes:    1,
		Skips: []model.Skip{
			{URL: "https://shop.test/p/1", Reason: model.SkipFetchFailed, Detail: "503"},
			{URL: "https://shop.test/p/2", Reason: model.SkipBelowFloor},
			{URL: "https://shop.test/p/3", Reason: model.SkipBelowFloor},
		},
	}
}

func testMerge() *ledger.MergeResult {
	unresolved := make([]*ledger.Row, 12)
	for i := range unresolved {
		unresolved[i] = &ledger.Row{Category: "MainLine", Name: fmt.Sprintf("row %d", i)}
	}
	return &ledger.MergeResult{
		RowsBefore: 20,
		RowsAfter:  7,
		Groups:     7,
		Duplicates: []ledger.DuplicateGroup{
			{Key: "sku:HYY72", Names: []string{"Skyline", "Nissan Skyline HYY72"}, Name: "Nissan Skyline HYY72"},
		},
		Unresolved: unresolved,
	}
}

func testMigrate() *ledger.MigrateResult {
	return &ledger.MigrateResult{
		Total:      5,
		WithSKU:    4,
		WithoutSKU: 1,
		Dropped:    1,
		NoSKU:      []string{"Mystery Car"},
		Duplicates: []ledger.SKUCount{{SKU: "HYY72", Count: 2}},
	}
}

// TestSimpleWriter tests the terminal summaries.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("crawl summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteCrawl(testRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"Crawl run 5f1c2a9e",
			"8-10 (3 pages)",
			"41 accepted, 40 written",
			"next run starts at page 11",
			"Skipped:  3 (below_floor: 2, fetch_failed: 1)",
			"https://shop.test/p/1: fetch_failed (503)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "p/2") {
			t.Error("policy skips are listed only in verbose mode")
		}
	})

	t.Run("verbose crawl lists all skips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).WriteCrawl(testRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "https://shop.test/p/2: below_floor") {
			t.Errorf("expected every skip in verbose output:\n%s", buf.String())
		}
	})

	t.Run("wrapped crawl", func(t *testing.T) {
		t.Parallel()

		run := testRun()
		run.Wrapped = true
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteCrawl(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "next run starts at page 1\n") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("merge summary samples unresolved rows", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteMerge(testMerge()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"Rows before merge: 20",
			"Rows after merge:  7",
			"Duplicate groups:  1",
			"Unresolved rows:   12",
			`name="row 9"`,
			"... and 2 more",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, `name="row 10"`) {
			t.Error("only the first rows are sampled")
		}
	})

	t.Run("migrate summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteMigrate(testMigrate()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Total rows:     5", "Dropped:        1", "HYY72 x2", "- Mystery Car"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q:\n%s", want, out)
			}
		}
	})
}

// TestMarkdownWriter tests Markdown reports.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("merge report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteMerge(testMerge()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# Ledger Merge Report", "## Merged Groups", "`sku:HYY72`", "## Unresolved Rows", "... and 2 more."} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("crawl report with chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteCrawl(testRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# Crawl Run Report", "```mermaid", "## Failures", "https://shop.test/p/1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("migrate report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteMigrate(testMigrate()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"# Ledger Migration Report", "## Duplicate SKUs", "`HYY72`", "Mystery Car"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteMerge(testMerge()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got MergeReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.RowsBefore != 20 || len(got.Duplicates) != 1 || len(got.Unresolved) != 12 {
		t.Errorf("unexpected report %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  \"rows_before\"") {
		t.Error("expected indented output")
	}

	buf.Reset()
	if _, err := NewJSONWriter(&buf).WriteMigrate(&ledger.MigrateResult{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"no_sku":[]`) || !strings.Contains(buf.String(), `"duplicates":[]`) {
		t.Errorf("empty lists must be arrays: %s", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) WriteCrawl(*model.RunSummary) (int, error) { return 0, errBoom }
func (failingWriter) WriteMerge(*ledger.MergeResult) (int, error) { return 0, errBoom }
func (failingWriter) WriteMigrate(*ledger.MigrateResult) (int, error) { return 0, errBoom }

var errBoom = errors.New("boom")

// TestMultiWriter tests fan-out and error propagation.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	n, err := m.WriteMigrate(testMigrate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() || a.Len() == 0 || b.Len() == 0 {
		t.Errorf("expected output in both writers, got %d bytes", n)
	}

	var c bytes.Buffer
	m = NewMultiWriter(failingWriter{}, NewSimpleWriter(&c))
	if _, err := m.WriteCrawl(testRun()); !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("writers after a failure must not run")
	}
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "Машинка Базова", max: 8, want: "Машин..."},
		{in: "abcdef", max: 3, want: "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
