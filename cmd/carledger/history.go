package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/carledger/internal/config"
	"github.com/nao1215/carledger/internal/database"
	"github.com/nao1215/carledger/internal/model"
)

// Defaults for the history command.
const (
	defaultHistoryLimit = 20
	shortIDLength       = 8
	maxErrorWidth       = 40
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database, newest first.

With a run ID (or a unique prefix of one) it shows that run and the items
it skipped. --recurring lists product pages that failed in several runs,
which usually points at pages whose layout the parser does not handle.

Examples:
  # List the last 20 runs
  carledger history

  # Show one run and its fetch failures only
  carledger history 1f0c2a9e --reason fetch_failed

  # Product pages that failed in at least 3 runs
  carledger history --recurring 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().String("reason", "",
		"Only show skips with this reason (e.g. fetch_failed, below_floor)")
	cmd.Flags().Int("recurring", 0,
		"List URLs that failed in at least this many runs")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: the data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	setupLogger(cmd)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	reason, err := cmd.Flags().GetString("reason")
	if err != nil {
		return err
	}
	recurring, err := cmd.Flags().GetInt("recurring")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close() //nolint:errcheck // closing on exit

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case recurring > 0:
		return showRecurringFailures(ctx, out, db, recurring)
	case len(args) == 1:
		return showRun(ctx, out, db, args[0], model.SkipReason(reason))
	default:
		return listRuns(ctx, out, db, limit)
	}
}

// listRuns prints a table of recent runs.
func listRuns(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded yet.")
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Pages", "Accepted", "Written", "Skipped", "Failed", "Wrapped", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Second),
			pageRange(r),
			r.Accepted,
			r.Written,
			r.Skipped,
			r.Failed,
			yesNo(r.Wrapped),
			clip(r.Error, maxErrorWidth),
		})
	}
	t.Render()
	return nil
}

// showRun prints one run and its skips.
func showRun(ctx context.Context, out io.Writer, db *database.HistoryDB, idPrefix string, reason model.SkipReason) error {
	run, err := db.FindRun(ctx, idPrefix)
	if err != nil {
		if errors.Is(err, database.ErrAmbiguousRun) {
			return fmt.Errorf("%w (give more characters of the ID)", err)
		}
		return err
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Duration: %s\n", run.Duration().Round(time.Second))
	fmt.Fprintf(out, "  Pages:    %s\n", pageRange(*run))
	fmt.Fprintf(out, "  Records:  %d accepted, %d written in %d flush(es)\n", run.Accepted, run.Written, run.Flushes)
	fmt.Fprintf(out, "  Wrapped:  %s\n", yesNo(run.Wrapped))
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", run.Error)
	}

	counts, err := db.SkipCountsByReason(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Fprintln(out)
		t := newTable(out)
		t.AppendHeader(table.Row{"Reason", "Count"})
		reasons := slices.SortedFunc(maps.Keys(counts), func(a, b model.SkipReason) int {
			return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
		})
		for _, r := range reasons {
			t.AppendRow(table.Row{r, counts[r]})
		}
		t.AppendFooter(table.Row{"Total", run.Skipped})
		t.Render()
	}

	skips, err := db.ListSkips(ctx, run.ID, reason)
	if err != nil {
		return err
	}
	if len(skips) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	t := newTable(out)
	t.AppendHeader(table.Row{"URL", "Reason", "Detail"})
	for _, s := range skips {
		t.AppendRow(table.Row{s.URL, s.Reason, s.Detail})
	}
	t.Render()
	return nil
}

// showRecurringFailures prints URLs that failed in at least minRuns runs.
func showRecurringFailures(ctx context.Context, out io.Writer, db *database.HistoryDB, minRuns int) error {
	failures, err := db.RecurringFailures(ctx, minRuns)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Fprintf(out, "No URL failed in %d or more runs.\n", minRuns)
		return nil
	}

	urls := slices.SortedFunc(maps.Keys(failures), func(a, b string) int {
		return cmp.Or(cmp.Compare(failures[b], failures[a]), cmp.Compare(a, b))
	})

	t := newTable(out)
	t.AppendHeader(table.Row{"URL", "Failed runs"})
	for _, u := range urls {
		t.AppendRow(table.Row{u, failures[u]})
	}
	t.Render()
	return nil
}

// newTable returns a table writer rendering to out.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func pageRange(r database.RunRecord) string {
	if r.Pages == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", r.StartPage, r.LastPage)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func clip(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
