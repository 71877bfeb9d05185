package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cferrors "codefacts/internal/errors"
	"codefacts/internal/facts"
	"codefacts/internal/slogutil"
)

// CommandExtractor runs the front end as a child process. The command gets
// the configured args, then --project <path> and the option flags, and must
// write JSON Lines facts to stdout.
type CommandExtractor struct {
	Command string
	Args    []string
	Timeout time.Duration
	Runner  Runner
	Logger  *slog.Logger
}

// NewCommandExtractor creates an extractor using os/exec.
func NewCommandExtractor(command string, args []string, timeout time.Duration, logger *slog.Logger) *CommandExtractor {
	return &CommandExtractor{
		Command: command,
		Args:    args,
		Timeout: timeout,
		Runner:  ExecRunner{},
		Logger:  slogutil.OrDiscard(logger),
	}
}

// Extract implements Extractor. Failures are EXTRACTION_FAILED and carry
// the command's stderr.
func (c *CommandExtractor) Extract(ctx context.Context, req Request) ([]facts.Record, error) {
	if c.Command == "" {
		return nil, cferrors.New(cferrors.ExtractionFailed, "no extractor command configured", nil)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.Args...), "--project", req.ProjectPath)
	args = append(args, optionFlags(req.Options)...)

	logger := slogutil.OrDiscard(c.Logger)
	start := time.Now()
	stdout, stderr, err := c.Runner.Run(ctx, req.ProjectPath, c.Command, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.Timeout, err)
		}
		logger.Error("Extractor command failed", "command", c.Command, "error", err, "stderr", stderr)
		return nil, cferrors.New(cferrors.ExtractionFailed, "extractor command failed", err).
			WithDetails(map[string]string{"stderr": stderr})
	}

	recs, err := ReadJSONLines(bytes.NewReader(stdout))
	if err != nil {
		return nil, cferrors.New(cferrors.ExtractionFailed, "extractor output is not JSON Lines", err)
	}
	logger.Info("Extracted facts",
		"project", req.ProjectPath,
		"records", len(recs),
		"duration", time.Since(start),
	)
	return ApplyOptions(recs, req.Options), nil
}
