package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/facts"
	"codefacts/internal/query"
)

var (
	searchType  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <project> <query>",
	Short: "Search stored facts by text",
	Long: `Search the stored facts of a project. Hits are ranked by the store's
text search; documents that are not valid facts are skipped.

Examples:
  codefacts search ./src/Billing Invoice
  codefacts search ./src/Billing Sign --type method_definition --limit 5`,
	Args: cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.SearchFacts(ctx, args[0], query.SearchOptions{
			Query: strings.Join(args[1:], " "),
			Type:  facts.Type(searchType),
			Limit: searchLimit,
		})
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats <project>",
	Short: "Count the stored facts of a project by type",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.Stats(ctx, args[0])
	}),
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "Only facts of this type")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum hits (default: query.defaultLimit)")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
}
