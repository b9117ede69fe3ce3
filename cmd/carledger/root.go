package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/carledger/internal/log"
)

// NewRootCmd creates the root command for carledger.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carledger",
		Short: "Price ledger for collectible model cars",
		Long: `carledger crawls the catalog of a model car shop and keeps a CSV ledger
with one row per product and one price column per day.

Crawls are resumable: the last completed listing page is checkpointed and
the next run continues from there, wrapping to page 1 at the end of the
catalog. The ledger can be deduplicated with 'merge' and converted from
the name-keyed layout with 'migrate'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the process logger and installs it as the default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := log.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)
	return logger
}
