package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/carledger/internal/ledger"
	"github.com/nao1215/carledger/internal/report"
)

// writeReportFile creates path (and its directories) and passes a Markdown
// writer for it to fn.
func writeReportFile(path string, fn func(report.Writer) error) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := fn(report.NewMarkdownWriter(f)); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// ledgerOutput returns the output path for a ledger rewrite. Without an
// explicit output the input is rewritten in place after a timestamped
// backup, whose path is printed to w.
func ledgerOutput(w io.Writer, args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	backup, err := ledger.Backup(args[0], time.Now())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(w, "Backup written to %s\n", backup)
	return args[0], nil
}

// resultWriter returns the console writer for a command's result.
func resultWriter(w io.Writer, jsonOut, verbose bool) report.Writer {
	if jsonOut {
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	}
	return report.NewSimpleWriter(w, report.WithVerbose(verbose))
}
