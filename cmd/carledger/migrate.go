package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/report"
)

// defaultNoSKULog is the file listing every row without a SKU.
const defaultNoSKULog = "migration_no_sku.log"

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <input-ledger> [output-ledger]",
		Short: "Add a sku column to a name-keyed ledger",
		Long: `Migrate converts a ledger keyed by car_name into one keyed by SKU. The sku
column is derived from car_name and placed first.

Rows whose name holds no SKU are dropped unless --keep-no-sku is given;
their names are written to the --no-sku-log file either way. SKUs shared
by several rows are listed; run 'carledger merge' afterwards to collapse
them.

Without an output file the input is overwritten after a timestamped backup.

Examples:
  # Migrate in place
  carledger migrate prices.csv

  # Keep rows without a SKU and write the result elsewhere
  carledger migrate prices.csv prices_sku.csv --keep-no-sku`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runMigrateCmd,
	}

	cmd.Flags().Bool("keep-no-sku", false,
		"Keep rows without a SKU (with an empty sku cell)")
	cmd.Flags().BoolP("force", "f", false,
		"Recompute the sku column of a ledger that already has one")
	cmd.Flags().String("no-sku-log", defaultNoSKULog,
		"File listing the names of rows without a SKU")
	cmd.Flags().StringP("report", "r", "",
		"Write a Markdown migration report to this file")
	cmd.Flags().BoolP("json", "j", false,
		"Print the migration summary as JSON")

	return cmd
}

// runMigrateCmd executes the migrate command.
func runMigrateCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)

	var opts ledger.MigrateOptions
	var err error
	if opts.KeepNoSKU, err = cmd.Flags().GetBool("keep-no-sku"); err != nil {
		return err
	}
	if opts.Force, err = cmd.Flags().GetBool("force"); err != nil {
		return err
	}
	noSKULog, err := cmd.Flags().GetString("no-sku-log")
	if err != nil {
		return err
	}
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

	res, err := ledger.Migrate(l, opts)
	if err != nil {
		return fmt.Errorf("%s: %w (use --force to recompute it)", args[0], err)
	}
	logger.Info("ledger migrated",
		"input", args[0],
		"total", res.Total,
		"with_sku", res.WithSKU,
		"dropped", res.Dropped,
	)

	out := cmd.OutOrStdout()
	if len(res.NoSKU) > 0 && noSKULog != "" {
		if err := writeNoSKULog(noSKULog, res.NoSKU); err != nil {
			return err
		}
		if !jsonOut {
			fmt.Fprintf(out, "Rows without SKU listed in %s\n", noSKULog)
		}
	}

	output, err := ledgerOutput(out, args)
	if err != nil {
		return err
	}
	if err := ledger.WriteFile(output, res.Ledger); err != nil {
		return err
	}

	if _, err := resultWriter(out, jsonOut, getVerboseFlag(cmd)).WriteMigrate(res); err != nil {
		return err
	}
	if !jsonOut {
		fmt.Fprintf(out, "Migrated ledger written to %s\n", output)
		if len(res.Duplicates) > 0 {
			fmt.Fprintln(out, "Run 'carledger merge' to collapse the duplicate SKUs.")
		}
	}

	if reportPath == "" {
		return nil
	}
	return writeReportFile(reportPath, func(w report.Writer) error {
		_, err := w.WriteMigrate(res)
		return err
	})
}

// writeNoSKULog writes a timestamped list of names to path, replacing any
// previous content.
func writeNoSKULog(path string, names []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Rows without SKU - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 70))
	b.WriteString("\n\n")
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
