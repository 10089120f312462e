package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annot/internal/config"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Populate finished", "file", "src/main.cpp", "terms", 3)

	output := buf.String()
	for _, want := range []string{"[info] Populate finished", " | ", "file=src/main.cpp", "terms=3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") || strings.Count(output, "\n") != 1 {
		t.Errorf("expected a single line, got: %q", output)
	}
}

func TestHandler_QuotesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug).WithGroup("oracle").With("endpoint", "check2")

	logger.Debug("Request", "error", errors.New("connection refused"), slog.Group("http", "status", 502), "note", "")

	output := buf.String()
	for _, want := range []string{
		"oracle.endpoint=check2",
		`oracle.error="connection refused"`,
		"oracle.http.status=502",
		`oracle.note=""`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn leaked: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("messages at or above warn missing: %s", output)
	}
}

func TestNewFormatHandler(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewFormatHandler(&buf, slog.LevelInfo, "json")).Info("hello", "k", 1)

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json format produced %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" {
		t.Errorf("msg = %v", rec["msg"])
	}

	buf.Reset()
	slog.New(NewFormatHandler(&buf, slog.LevelInfo, "human")).Info("hello")
	if !strings.Contains(buf.String(), "[info] hello") {
		t.Errorf("human format = %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.expected {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should be disabled at every level")
	}
	logger.Error("dropped")
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2)).With("op", "check")
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 = %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") || !strings.Contains(buf2.String(), "warn message") {
		t.Errorf("buf2 = %s", buf2.String())
	}
	if !strings.Contains(buf2.String(), "op=check") {
		t.Errorf("attrs not propagated: %s", buf2.String())
	}
}

func TestLoggerFactory(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "info"

	var console bytes.Buffer
	f := NewLoggerFactory(root, cfg, nil)
	logger := f.CLILogger(&console)
	logger.Info("no workspace yet")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if console.Len() != 0 {
		t.Errorf("info reached the console at the default level: %s", console.String())
	}
	if _, err := os.Stat(filepath.Join(root, ".annot")); !os.IsNotExist(err) {
		t.Error("factory created .annot in an uninitialised workspace")
	}

	if err := os.MkdirAll(filepath.Join(root, ".annot"), 0755); err != nil {
		t.Fatal(err)
	}
	debug := slog.LevelDebug
	f = NewLoggerFactory(root, cfg, &debug)
	if f.ConsoleLevel() != slog.LevelDebug || f.FileLevel() != slog.LevelDebug {
		t.Errorf("levels = %v/%v, want debug", f.ConsoleLevel(), f.FileLevel())
	}
	logger = f.CLILogger(&console)
	logger.Debug("to both")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".annot", "logs", "annot.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(console.String(), "to both") {
		t.Errorf("file=%q console=%q", data, console.String())
	}
}
