package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"

	apperrors "beatmark/internal/platform/errors"
)

type Options struct {
	Name  string
	Level string
	// File receives log lines when set. Output wins over File.
	File   string
	Output io.Writer
}

// New builds the process logger. With neither File nor Output set it returns a
// logger that drops everything, so the TUI never writes over the screen.
func New(opts Options) (hclog.Logger, io.Closer, error) {
	level := hclog.Info
	if opts.Level != "" {
		level = hclog.LevelFromString(opts.Level)
		if level == hclog.NoLevel {
			return nil, nil, fmt.Errorf("%w: log level %q", apperrors.ErrInvalidInput, opts.Level)
		}
	}
	name := opts.Name
	if name == "" {
		name = "beatmark"
	}

	out := opts.Output
	var closer io.Closer = nopCloser{}
	if out == nil && opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	if out == nil {
		return hclog.NewNullLogger(), closer, nil
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  level,
		Output: out,
	}), closer, nil
}

// OrNull returns logger, or a discarding logger when logger is nil.
func OrNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
