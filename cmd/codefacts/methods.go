package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/query"
)

var (
	methodsClass     string
	methodsNamespace string
	methodsLimit     int
	methodsOffset    int

	entrypointsKind   string
	entrypointsLimit  int
	entrypointsOffset int
)

var methodsCmd = &cobra.Command{
	Use:   "methods <project>",
	Short: "List method definitions",
	Long: `List method definitions ordered by fully qualified name.

Examples:
  codefacts methods ./src/Billing --class Billing.Invoice
  codefacts methods ./src/Billing --namespace Billing --limit 100`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.ListMethods(ctx, args[0], query.ListMethodsOptions{
			Class:     methodsClass,
			Namespace: methodsNamespace,
			Limit:     methodsLimit,
			Offset:    methodsOffset,
		})
	}),
}

var methodCmd = &cobra.Command{
	Use:   "method <project> <method>",
	Short: "Show a method definition and its call counts",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetMethod(ctx, args[0], args[1])
	}),
}

var entrypointsCmd = &cobra.Command{
	Use:   "entrypoints <project>",
	Short: "List entry points (Main methods and controller actions)",
	Long: `List entry points: methods named Main, and methods of classes
whose name ends in Controller.

Examples:
  codefacts entrypoints ./src/Billing
  codefacts entrypoints ./src/Billing --kind controller`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.ListEntryPoints(ctx, args[0], query.EntryPointOptions{
			Kind:   strings.ToLower(entrypointsKind),
			Limit:  entrypointsLimit,
			Offset: entrypointsOffset,
		})
	}),
}

func init() {
	methodsCmd.Flags().StringVar(&methodsClass, "class", "", "Only methods of this class")
	methodsCmd.Flags().StringVar(&methodsNamespace, "namespace", "", "Only methods in this namespace")
	methodsCmd.Flags().IntVar(&methodsLimit, "limit", 0, "Page size (default: query.defaultLimit)")
	methodsCmd.Flags().IntVar(&methodsOffset, "offset", 0, "Page start")

	entrypointsCmd.Flags().StringVar(&entrypointsKind, "kind", "", "main or controller (default: both)")
	entrypointsCmd.Flags().IntVar(&entrypointsLimit, "limit", 0, "Page size (default: query.defaultLimit)")
	entrypointsCmd.Flags().IntVar(&entrypointsOffset, "offset", 0, "Page start")

	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(methodCmd)
	rootCmd.AddCommand(entrypointsCmd)
}
