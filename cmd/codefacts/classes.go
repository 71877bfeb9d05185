package main

import (
	"context"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/query"
)

var (
	classesNamespace string
	classesLimit     int
	classesOffset    int
	classRefsType    string
)

var classesCmd = &cobra.Command{
	Use:   "classes <project>",
	Short: "List class definitions",
	Long: `List class definitions ordered by fully qualified name.

Examples:
  codefacts classes ./src/Billing
  codefacts classes ./src/Billing --namespace Billing.Invoices --limit 20 --offset 40`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.ListClasses(ctx, args[0], query.ListClassesOptions{
			Namespace: classesNamespace,
			Limit:     classesLimit,
			Offset:    classesOffset,
		})
	}),
}

var classCmd = &cobra.Command{
	Use:   "class <project> <class>",
	Short: "Show a class definition",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetClass(ctx, args[0], args[1])
	}),
}

var classMethodsCmd = &cobra.Command{
	Use:   "class-methods <project> <class>",
	Short: "List the methods a class defines",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetClassMethods(ctx, args[0], args[1])
	}),
}

var classRefsCmd = &cobra.Command{
	Use:   "class-refs <project> <class>",
	Short: "List the classes a class depends on",
	Long: `List the classes a class inherits from, implements or calls into,
with the sites each reference was seen at.

Examples:
  codefacts class-refs ./src/Billing Billing.Invoice
  codefacts class-refs ./src/Billing Billing.Invoice --type calls`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetClassReferences(ctx, args[0], query.ClassReferencesOptions{
			Class:            args[1],
			RelationshipType: classRefsType,
		})
	}),
}

func init() {
	classesCmd.Flags().StringVar(&classesNamespace, "namespace", "", "Only classes in this namespace")
	classesCmd.Flags().IntVar(&classesLimit, "limit", 0, "Page size (default: query.defaultLimit)")
	classesCmd.Flags().IntVar(&classesOffset, "offset", 0, "Page start")
	classRefsCmd.Flags().StringVar(&classRefsType, "type", "", "Relationship type (inherits, implements, calls)")

	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(classCmd)
	rootCmd.AddCommand(classMethodsCmd)
	rootCmd.AddCommand(classRefsCmd)
}
