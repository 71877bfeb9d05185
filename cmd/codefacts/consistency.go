package main

import (
	"context"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/consistency"
)

var cleanupDryRun bool

var accuracyCmd = &cobra.Command{
	Use:   "accuracy <project>",
	Short: "Score stored facts against a fresh extraction",
	Long: `Run the project's extractor again and compare its facts with the stored
ones. Reports precision, recall and F1 per fact type and overall, with the
missing and extra identities.

Examples:
  codefacts accuracy ./src/Billing
  codefacts accuracy ./src/Billing --format json`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.CompareAgainstGroundTruth(ctx, args[0])
	}),
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <project>",
	Short: "Delete stored facts that no longer exist in the source",
	Long: `Run the project's extractor again and delete every stored fact whose
identity the fresh extraction no longer produces. A fact that only moved
(same identity, new line) is kept. Deletion is best-effort: a failed
delete is reported and the rest continue.

Examples:
  codefacts cleanup ./src/Billing --dry-run
  codefacts cleanup ./src/Billing`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.CleanupStale(ctx, args[0], consistency.CleanupOptions{DryRun: cleanupDryRun})
	}),
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report stale facts without deleting them")
	rootCmd.AddCommand(accuracyCmd)
	rootCmd.AddCommand(cleanupCmd)
}
