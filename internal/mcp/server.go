// Package mcp exposes the fact index as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"codefacts/internal/app"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/slogutil"
	"codefacts/internal/version"
)

// Server holds what the tool handlers need.
type Server struct {
	app    *app.App
	logger *slog.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(a *app.App, logger *slog.Logger) *sdk.Server {
	s := &Server{app: a, logger: slogutil.OrDiscard(logger)}
	srv := sdk.NewServer(&sdk.Implementation{
		Name:    "codefacts",
		Version: version.Version,
	}, nil)
	s.register(srv)
	return srv
}

// RunStdio serves over stdin/stdout until ctx is done or the client hangs up.
func RunStdio(ctx context.Context, a *app.App, logger *slog.Logger) error {
	logger = slogutil.OrDiscard(logger)
	logger.Info("MCP server starting", "transport", "stdio", "version", version.Version)
	return NewServer(a, logger).Run(ctx, &sdk.StdioTransport{})
}

// handle adapts fn to a tool handler. Errors become IsError results carrying
// the error code so the client can tell caller mistakes from failures.
func handle[In any](s *Server, name string, fn func(context.Context, In) (any, error)) sdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		start := time.Now()
		out, err := fn(ctx, in)
		if err != nil {
			s.logger.Warn("Tool call failed",
				"tool", name,
				"code", cferrors.CodeOf(err),
				"error", err,
				"durationMs", time.Since(start).Milliseconds(),
			)
			return toolError(err), nil, nil
		}
		s.logger.Debug("Tool call", "tool", name, "durationMs", time.Since(start).Milliseconds())
		return toolJSON(out)
	}
}

func toolError(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func toolJSON(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(cferrors.New(cferrors.InternalError, "marshal result", err)), nil, nil
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
