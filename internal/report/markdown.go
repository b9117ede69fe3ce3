package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

var _ Writer = (*MarkdownWriter)(nil)

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteCrawl implements Writer.
func (w *MarkdownWriter) WriteCrawl(run *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Run Report")
	md.PlainText("")

	pages := "none"
	if run.Pages > 0 {
		pages = fmt.Sprintf("%d-%d (%d)", run.StartPage, run.LastPage, run.Pages)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", pages},
			{"Records accepted", strconv.Itoa(run.Accepted)},
			{"Records written", strconv.Itoa(run.Written)},
			{"Flushes", strconv.Itoa(run.Flushes)},
			{"Next start page", strconv.Itoa(nextStart(run))},
		},
	})
	md.PlainText("")

	switch {
	case run.Error != "":
		md.Warningf("The run ended early: %s", run.Error)
	case run.Wrapped:
		md.Note("The end of the catalog was reached. The next run starts at page 1.")
	default:
		md.Tip("The run stopped at its page budget.")
	}
	md.PlainText("")

	breakdown := skipBreakdown(run)
	md.H2("Skipped Items")
	md.PlainText("")
	if len(breakdown) == 0 {
		md.PlainText("No items were skipped.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(breakdown))
		for i, rc := range breakdown {
			rows[i] = []string{string(rc.Reason), strconv.Itoa(rc.Count)}
		}
		md.Table(markdown.TableSet{Header: []string{"Reason", "Count"}, Rows: rows})
		md.PlainText("")
		w.writeSkipChart(md, breakdown)
	}

	if f := failures(run); len(f) > 0 {
		md.H2("Failures")
		md.PlainText("")
		rows := make([][]string, len(f))
		for i, s := range f {
			rows[i] = []string{s.URL, string(s.Reason), orDash(truncateString(s.Detail, 60))}
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Reason", "Detail"}, Rows: rows})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeSkipChart writes a mermaid pie chart of skip reasons.
func (w *MarkdownWriter) writeSkipChart(md *markdown.Markdown, breakdown []reasonCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Skip Reasons"),
		piechart.WithShowData(true),
	)
	for _, rc := range breakdown {
		chart.LabelAndIntValue(string(rc.Reason), uint64(rc.Count)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteMerge implements Writer.
func (w *MarkdownWriter) WriteMerge(res *ledger.MergeResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Ledger Merge Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Rows before", strconv.Itoa(res.RowsBefore)},
			{"Rows after", strconv.Itoa(res.RowsAfter)},
			{"Products", strconv.Itoa(res.Groups)},
			{"Duplicate groups", strconv.Itoa(len(res.Duplicates))},
			{"Unresolved rows", strconv.Itoa(len(res.Unresolved))},
		},
	})
	md.PlainText("")

	if len(res.Unresolved) > 0 {
		md.Warningf("%d row(s) have no identity and were left out of the merged ledger.", len(res.Unresolved))
	} else if len(res.Duplicates) == 0 {
		md.Tip("No duplicates found.")
	} else {
		md.Note(fmt.Sprintf("%d duplicate group(s) were merged.", len(res.Duplicates)))
	}
	md.PlainText("")

	if len(res.Duplicates) > 0 {
		md.H2("Merged Groups")
		md.PlainText("")
		rows := make([][]string, len(res.Duplicates))
		for i, g := range res.Duplicates {
			rows[i] = []string{
				"`" + g.Key + "`",
				strconv.Itoa(len(g.Names)),
				truncateString(g.Name, 60),
				truncateString(strings.Join(g.Names, "; "), 120),
			}
		}
		md.Table(markdown.TableSet{Header: []string{"Key", "Rows", "Kept name", "Merged names"}, Rows: rows})
		md.PlainText("")
	}

	if len(res.Unresolved) > 0 {
		md.H2("Unresolved Rows")
		md.PlainText("")
		items := make([]string, 0, SampleSize)
		for _, r := range sample(res.Unresolved) {
			items = append(items, fmt.Sprintf("%s / %s", orDash(r.Category), orDash(r.Name)))
		}
		md.BulletList(items...)
		if len(res.Unresolved) > SampleSize {
			md.PlainText("")
			md.PlainTextf("... and %d more.", len(res.Unresolved)-SampleSize)
		}
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteMigrate implements Writer.
func (w *MarkdownWriter) WriteMigrate(res *ledger.MigrateResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Ledger Migration Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Total rows", strconv.Itoa(res.Total)},
			{"With SKU", strconv.Itoa(res.WithSKU)},
			{"Without SKU", strconv.Itoa(res.WithoutSKU)},
			{"Dropped", strconv.Itoa(res.Dropped)},
			{"Duplicate SKUs", strconv.Itoa(len(res.Duplicates))},
		},
	})
	md.PlainText("")

	if len(res.Duplicates) > 0 {
		md.Importantf("%d SKU(s) appear in more than one row. Run `carledger merge` to collapse them.", len(res.Duplicates))
		md.PlainText("")
		md.H2("Duplicate SKUs")
		md.PlainText("")
		rows := make([][]string, len(res.Duplicates))
		for i, d := range res.Duplicates {
			rows[i] = []string{"`" + d.SKU + "`", strconv.Itoa(d.Count)}
		}
		md.Table(markdown.TableSet{Header: []string{"SKU", "Rows"}, Rows: rows})
		md.PlainText("")
	}

	if len(res.NoSKU) > 0 {
		md.H2("Rows Without SKU")
		md.PlainText("")
		md.BulletList(sample(res.NoSKU)...)
		if len(res.NoSKU) > SampleSize {
			md.PlainText("")
			md.PlainTextf("... and %d more.", len(res.NoSKU)-SampleSize)
		}
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by carledger*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
