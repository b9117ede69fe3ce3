package report

import (
	"cmp"
	"io"
	"slices"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

// SampleSize is the number of example rows listed for unresolved or
// SKU-less rows.
const SampleSize = 10

// Writer renders results in one format.
type Writer interface {
	// WriteCrawl outputs a crawl run summary.
	WriteCrawl(run *model.RunSummary) (int, error)

	// WriteMerge outputs the result of a dedup/merge pass.
	WriteMerge(res *ledger.MergeResult) (int, error)

	// WriteMigrate outputs the result of a legacy migration.
	WriteMigrate(res *ledger.MigrateResult) (int, error)
}

// MultiWriter writes to multiple Writers in order and stops at the first
// error.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteCrawl implements Writer.
func (m *MultiWriter) WriteCrawl(run *model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteCrawl(run) })
}

// WriteMerge implements Writer.
func (m *MultiWriter) WriteMerge(res *ledger.MergeResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteMerge(res) })
}

// WriteMigrate implements Writer.
func (m *MultiWriter) WriteMigrate(res *ledger.MigrateResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteMigrate(res) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sample returns at most SampleSize leading items.
func sample[T any](items []T) []T {
	if len(items) > SampleSize {
		return items[:SampleSize]
	}
	return items
}

// reasonCount is one line of a skip breakdown.
type reasonCount struct {
	Reason model.SkipReason
	Count  int
}

// skipBreakdown returns skip counts, most frequent first, then by reason.
func skipBreakdown(run *model.RunSummary) []reasonCount {
	counts := run.SkipCounts()
	out := make([]reasonCount, 0, len(counts))
	for r, n := range counts {
		out = append(out, reasonCount{Reason: r, Count: n})
	}
	slices.SortFunc(out, func(a, b reasonCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return out
}

// failures returns the run's skips that are failures.
func failures(run *model.RunSummary) []model.Skip {
	var out []model.Skip
	for _, s := range run.Skips {
		if s.Reason.IsFailure() {
			out = append(out, s)
		}
	}
	return out
}

// nextStart describes where the following run resumes.
func nextStart(run *model.RunSummary) int {
	if run.Wrapped {
		return 1
	}
	if run.LastPage > 0 {
		return run.LastPage + 1
	}
	return run.StartPage
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
