package main

import (
	"context"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/graph"
)

var (
	callgraphDepth       int
	callgraphIncludeSelf bool
)

var callersCmd = &cobra.Command{
	Use:   "callers <project> <method>",
	Short: "Walk the call graph towards callers of a method",
	Long: `Walk the call graph breadth-first towards the callers of <method>, up to
--depth levels. Each method is reported once, at the first depth it is
reached, together with the call site that reached it.

Examples:
  codefacts callers ./src/Billing Billing.Invoice.Sign
  codefacts callers ./src/Billing Billing.Invoice.Sign --depth 3 --include-self`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetCallers(ctx, args[0], traversalOptions(args[1]))
	}),
}

var calleesCmd = &cobra.Command{
	Use:   "callees <project> <method>",
	Short: "Walk the call graph towards callees of a method",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetCallees(ctx, args[0], traversalOptions(args[1]))
	}),
}

func traversalOptions(method string) graph.Options {
	return graph.Options{Method: method, Depth: callgraphDepth, IncludeSelf: callgraphIncludeSelf}
}

func init() {
	for _, cmd := range []*cobra.Command{callersCmd, calleesCmd} {
		cmd.Flags().IntVar(&callgraphDepth, "depth", 1, "Levels to walk (at least 1, clamped to query.maxDepth)")
		cmd.Flags().BoolVar(&callgraphIncludeSelf, "include-self", false, "Report the method itself at depth 0")
		rootCmd.AddCommand(cmd)
	}
}
