package slogutil

import (
	"io"
	"log/slog"
	"os"

	"codefacts/internal/config"
)

// Setup builds the process logger: console output at consoleLevel plus, when
// logging.file is configured, a (possibly rotating) file at the configured level.
// The returned closer releases the file and is never nil.
func Setup(cfg config.LoggingConfig, console io.Writer, consoleLevel slog.Level) (*slog.Logger, io.Closer, error) {
	consoleHandler := NewLineHandler(console, &slog.HandlerOptions{Level: consoleLevel})
	if cfg.File == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	var w io.WriteCloser
	if size := ParseSize(cfg.MaxSize); size > 0 {
		rf, err := OpenRotatingFile(cfg.File, size, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		w = rf
	} else {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		w = f
	}

	fileHandler := NewLineHandler(w, &slog.HandlerOptions{Level: LevelFromString(cfg.Level)})
	return slog.New(NewMultiHandler(consoleHandler, fileHandler)), w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
