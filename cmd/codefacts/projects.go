package main

import (
	"context"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status <project>",
	Short: "Show a project's indexing status",
	Long: `Show the status, progress, statistics and errors of a project.
<project> is a project id or the path it was indexed from.

Examples:
  codefacts status ./src/Billing
  codefacts status 3f2a9c1b7d4e5f60a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(_ context.Context, a *app.App, args []string) (interface{}, error) {
		return a.GetStatus(args[0])
	}),
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE: withApp(func(_ context.Context, a *app.App, _ []string) (interface{}, error) {
		return a.ListProjects(), nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project and all of its facts",
	Long: `Delete a project and all of its facts. When the project is still indexing,
the command waits for the run to finish first; interrupting the wait
deletes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runDelete),
}

// DeleteResponseCLI reports the outcome of delete.
type DeleteResponseCLI struct {
	Project string `json:"project"`
	Deleted bool   `json:"deleted"`
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(ctx context.Context, a *app.App, args []string) (interface{}, error) {
	ok, err := a.DeleteProject(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return &DeleteResponseCLI{Project: args[0], Deleted: ok}, nil
}
