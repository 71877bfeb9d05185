package main

import (
	"github.com/spf13/cobra"

	"codefacts/internal/mcp"
	"codefacts/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server on stdio",
	Long: `Start the Model Context Protocol server. It speaks JSON-RPC over stdin
and stdout and exposes every query as a tool (index_project, list_classes,
get_callers, search_facts, compare_accuracy, cleanup_stale and the rest).
Logs go to stderr and the configured log file, never to stdout.

This command is normally launched by an MCP client, not run by hand.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := newContext()
	defer cancel()

	s.logger.Info("Starting MCP server", "version", version.Version)
	if err := mcp.RunStdio(ctx, s.app, s.logger); err != nil && ctx.Err() == nil {
		s.logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}
