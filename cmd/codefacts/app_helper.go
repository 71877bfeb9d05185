package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codefacts/internal/app"
	"codefacts/internal/config"
	cferrors "codefacts/internal/errors"
	"codefacts/internal/slogutil"
)

// session is an opened App plus the logger resources it needs.
type session struct {
	app    *app.App
	logger *slog.Logger
	closer io.Closer
}

func (s *session) Close() {
	if err := s.app.Close(); err != nil {
		s.logger.Warn("Failed to close stores", "error", err)
	}
	_ = s.closer.Close()
}

// loadConfig reads the configuration selected by the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(dataDirFlag, configFlag)
	if err != nil {
		return nil, cferrors.Invalid("load config: %v", err)
	}
	return cfg, nil
}

// newLogger writes to stderr at the -v/--quiet level, plus the configured log file.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return slogutil.Setup(cfg.Logging, os.Stderr, slogutil.LevelFromVerbosity(verbosity, quietFlag))
}

// openSession loads config, sets up logging and opens the App.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	logger.Debug("Opened data directory", "dataDir", cfg.DataDir, "backend", cfg.Store.Backend)
	return &session{app: a, logger: logger, closer: closer}, nil
}

// newContext is cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withApp runs fn against an opened App and prints its result.
func withApp(fn func(ctx context.Context, a *app.App, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := newContext()
		defer cancel()

		resp, err := fn(ctx, s.app, args)
		if err != nil {
			return err
		}
		return printResult(cmd, resp)
	}
}

// printResult writes resp in the --format output format.
func printResult(cmd *cobra.Command, resp interface{}) error {
	output, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return cferrors.Invalid("%v", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
	return err
}
