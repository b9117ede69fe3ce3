package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

// SimpleWriter outputs plain text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every skip, duplicate group and SKU-less row instead
	// of a sample.
	verbose bool
}

var _ Writer = (*SimpleWriter)(nil)

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCrawl implements Writer.
func (w *SimpleWriter) WriteCrawl(run *model.RunSummary) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Crawl run %s\n", run.ID)
	if run.Pages > 0 {
		fmt.Fprintf(&sb, "  Pages:    %d-%d (%d pages)\n", run.StartPage, run.LastPage, run.Pages)
	} else {
		fmt.Fprintf(&sb, "  Pages:    none completed (started at %d)\n", run.StartPage)
	}
	fmt.Fprintf(&sb, "  Records:  %d accepted, %d written in %d flush(es)\n", run.Accepted, run.Written, run.Flushes)
	if run.Wrapped {
		sb.WriteString("  Catalog:  end reached, next run starts at page 1\n")
	} else {
		fmt.Fprintf(&sb, "  Catalog:  next run starts at page %d\n", nextStart(run))
	}
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}

	breakdown := skipBreakdown(run)
	if len(breakdown) > 0 {
		parts := make([]string, len(breakdown))
		for i, rc := range breakdown {
			parts[i] = fmt.Sprintf("%s: %d", rc.Reason, rc.Count)
		}
		fmt.Fprintf(&sb, "  Skipped:  %d (%s)\n", len(run.Skips), strings.Join(parts, ", "))
	}
	if run.Error != "" {
		fmt.Fprintf(&sb, "  Error:    %s\n", run.Error)
	}

	if w.verbose {
		for _, s := range run.Skips {
			fmt.Fprintf(&sb, "    - %s\n", s)
		}
	} else if f := failures(run); len(f) > 0 {
		sb.WriteString("  Failures:\n")
		for _, s := range sample(f) {
			fmt.Fprintf(&sb, "    - %s\n", s)
		}
		if len(f) > SampleSize {
			fmt.Fprintf(&sb, "    ... and %d more\n", len(f)-SampleSize)
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteMerge implements Writer.
func (w *SimpleWriter) WriteMerge(res *ledger.MergeResult) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Rows before merge: %d\n", res.RowsBefore)
	fmt.Fprintf(&sb, "Rows after merge:  %d\n", res.RowsAfter)
	fmt.Fprintf(&sb, "Duplicate groups:  %d\n", len(res.Duplicates))

	if w.verbose {
		for _, g := range res.Duplicates {
			fmt.Fprintf(&sb, "  %s -> %q\n", g.Key, g.Name)
			for _, name := range g.Names {
				fmt.Fprintf(&sb, "      %s\n", name)
			}
		}
	}

	if len(res.Unresolved) > 0 {
		fmt.Fprintf(&sb, "Unresolved rows:   %d (excluded, no identity)\n", len(res.Unresolved))
		rows := res.Unresolved
		if !w.verbose {
			rows = sample(rows)
		}
		for _, r := range rows {
			fmt.Fprintf(&sb, "  - category=%q name=%q\n", r.Category, r.Name)
		}
		if !w.verbose && len(res.Unresolved) > SampleSize {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(res.Unresolved)-SampleSize)
		}
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteMigrate implements Writer.
func (w *SimpleWriter) WriteMigrate(res *ledger.MigrateResult) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Total rows:     %d\n", res.Total)
	fmt.Fprintf(&sb, "With SKU:       %d\n", res.WithSKU)
	fmt.Fprintf(&sb, "Without SKU:    %d\n", res.WithoutSKU)
	if res.Dropped > 0 {
		fmt.Fprintf(&sb, "Dropped:        %d\n", res.Dropped)
	}
	fmt.Fprintf(&sb, "Duplicate SKUs: %d\n", len(res.Duplicates))

	dups := res.Duplicates
	if !w.verbose {
		dups = sample(dups)
	}
	for _, d := range dups {
		fmt.Fprintf(&sb, "  %s x%d\n", d.SKU, d.Count)
	}

	if len(res.NoSKU) > 0 {
		names := res.NoSKU
		if !w.verbose {
			names = sample(names)
		}
		sb.WriteString("Rows without SKU:\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "  - %s\n", name)
		}
		if !w.verbose && len(res.NoSKU) > SampleSize {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(res.NoSKU)-SampleSize)
		}
	}

	return w.output.Write([]byte(sb.String()))
}
