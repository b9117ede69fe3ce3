package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/report"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <input-ledger> [output-ledger]",
		Short: "Collapse duplicate rows of a ledger",
		Long: `Merge groups ledger rows that describe the same product and writes one row
per product.

Rows are grouped by SKU (the sku column, or a SKU found in car_name) and
otherwise by a composite identity built from category, casting code and
color. The merged row takes its name and image from the member with the
latest observed price; for each date the first non-empty price wins.
Rows without any identity are left out and listed in the summary.

Without an output file the input is overwritten after a timestamped backup
(prices_backup_20250101_120000.csv).

Examples:
  # Merge in place
  carledger merge prices.csv

  # Write the merged ledger to another file and a Markdown report
  carledger merge prices.csv merged.csv --report merge.md`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runMergeCmd,
	}

	cmd.Flags().StringP("report", "r", "",
		"Write a Markdown merge report to this file")
	cmd.Flags().BoolP("json", "j", false,
		"Print the merge summary as JSON")

	return cmd
}

// runMergeCmd executes the merge command.
func runMergeCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	reportPath, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	l, err := ledger.ReadFile(args[0])
	if err != nil {
		return err
	}

	res := ledger.Merge(l)
	logger.Info("ledger merged",
		"input", args[0],
		"rows_before", res.RowsBefore,
		"rows_after", res.RowsAfter,
		"unresolved", len(res.Unresolved),
	)

	out := cmd.OutOrStdout()
	output, err := ledgerOutput(out, args)
	if err != nil {
		return err
	}
	if err := ledger.WriteFile(output, res.Ledger); err != nil {
		return err
	}

	if _, err := resultWriter(out, jsonOut, getVerboseFlag(cmd)).WriteMerge(res); err != nil {
		return err
	}
	if !jsonOut {
		fmt.Fprintf(out, "Merged ledger written to %s\n", output)
	}

	if reportPath == "" {
		return nil
	}
	return writeReportFile(reportPath, func(w report.Writer) error {
		_, err := w.WriteMerge(res)
		return err
	})
}
