package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown", slog.String("category", "taxi"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "shown" || rec["category"] != "taxi" {
		t.Errorf("record = %v", rec)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citypages.log")
	log, closer := New(slog.LevelInfo, FileConfig{Path: path, MaxSizeMB: 1})
	log.Info("page written", slog.String("path", "taxi-cities-pages/PuneTaxiPage.jsx"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "PuneTaxiPage.jsx") {
		t.Errorf("log file content = %q", data)
	}
}

func TestNewWithoutFile(t *testing.T) {
	log, closer := New(slog.LevelInfo, FileConfig{})
	if log == nil {
		t.Fatal("nil logger")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewWithConsoleTeesToFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "mcp.log")
	log, closer := NewWithConsole(&console, slog.LevelInfo, FileConfig{Path: path})
	log.Info("tool called", slog.String("tool", "list_cities"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(console.String(), "list_cities") || !strings.Contains(string(data), "list_cities") {
		t.Errorf("console = %q, file = %q", console.String(), data)
	}
}
