// Package logger builds the process-wide slog logger.
//
// Records are JSON. They go to the console, stdout unless the caller picks
// another writer, and also to a lumberjack-rotated file when one is set.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/lumberjack"
)

// FileConfig configures the optional rotating file sink.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// New returns a JSON logger writing to stdout and, if file.Path is set, to
// the rotating file. The returned closer releases the file sink.
func New(level slog.Level, file FileConfig) (*slog.Logger, io.Closer) {
	return NewWithConsole(os.Stdout, level, file)
}

// NewWithConsole is New with a different console writer. The MCP command
// logs to stderr because stdout carries the protocol.
func NewWithConsole(console io.Writer, level slog.Level, file FileConfig) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if file.Path != "" {
		sink := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		w = io.MultiWriter(console, sink)
		closer = sink
	}
	return newWithWriter(w, level), closer
}

func newWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
