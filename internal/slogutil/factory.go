package slogutil

import (
	"io"
	"log/slog"
	"os"

	"annot/internal/config"
	"annot/internal/paths"
)

// LoggerFactory builds the command logger: a console handler plus, when the
// workspace is initialised, a rotating file at .annot/logs/annot.log.
// Precedence for levels is CLI flags, then config, then info.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel is nil when no -v or -q flag
// was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{root: root, config: cfg, cliLevel: cliLevel}
}

// ConsoleLevel is the level for terminal output: the CLI flag, else warn so
// normal runs stay quiet.
func (f *LoggerFactory) ConsoleLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	return slog.LevelWarn
}

// FileLevel is the configured level, lowered when the CLI asks for more.
func (f *LoggerFactory) FileLevel() slog.Level {
	level := LevelFromString(f.config.Logging.Level)
	if f.cliLevel != nil && *f.cliLevel < level {
		return *f.cliLevel
	}
	return level
}

// CLILogger returns the logger commands use. A log file that cannot be
// opened is skipped rather than failing the command.
func (f *LoggerFactory) CLILogger(console io.Writer) *slog.Logger {
	handlers := []slog.Handler{NewFormatHandler(console, f.ConsoleLevel(), f.config.Logging.Format)}
	if h := f.fileHandler(); h != nil {
		handlers = append(handlers, h)
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(NewTeeHandler(handlers...))
}

func (f *LoggerFactory) fileHandler() slog.Handler {
	if f.root == "" || !f.config.Logging.File {
		return nil
	}
	if info, err := os.Stat(paths.DataDir(f.root)); err != nil || !info.IsDir() {
		return nil
	}
	logger, closer, err := NewFileLoggerWithRotation(paths.LogPath(f.root), f.FileLevel(),
		f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	if err != nil {
		return nil
	}
	f.closers = append(f.closers, closer)
	return logger.Handler()
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
