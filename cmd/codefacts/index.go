package main

import (
	"context"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
)

var (
	indexName string
	indexWait bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index the facts of a project",
	Long: `Register the project at <path> and index its facts.

Facts come from <path>/.codefacts.toml when present: its fact bundle
(.json, .jsonl, .yaml or .toml) wins over its extractor command. Without
a manifest the extractor command from the configuration runs.

A path that is already registered is not indexed again; delete the
project first to re-index it from scratch.

Examples:
  codefacts index ./src/Billing
  codefacts index ./src/Billing --name billing
  codefacts index ./src/Billing --wait=false --format json`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runIndex),
}

func init() {
	indexCmd.Flags().StringVar(&indexName, "name", "", "Project name (default: directory name)")
	indexCmd.Flags().BoolVar(&indexWait, "wait", true, "Wait for indexing to finish and print the final status")
	rootCmd.AddCommand(indexCmd)
}

// runIndex returns the queued response with --wait=false. The indexing run
// still completes before the process exits, since closing the app waits for it.
func runIndex(ctx context.Context, a *app.App, args []string) (interface{}, error) {
	resp, err := a.IndexProject(args[0], indexName)
	if err != nil {
		return nil, err
	}
	if !indexWait {
		return resp, nil
	}
	return a.WaitForIndexing(ctx, resp.ProjectID)
}
