package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("reflow") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("reflow") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("reflow") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if gotLog := buf.Len() > 0; gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(10 * time.Millisecond)
	prog.done("Fetched 42 items")

	out := buf.String()
	if !strings.Contains(out, "Fetched 42 items (") {
		t.Errorf("progress.done() output = %q", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("loggerFromContext() = nil without a logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Error("loggerFromContext() did not return the attached logger")
	}
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masonry.log")
	w := newRotatingFile(config.Log{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	if _, err := w.Write([]byte("reflow cols=3\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "reflow cols=3\n" {
		t.Errorf("log file = %q", data)
	}
}

func TestLogFileFlag(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")

	var stderr syncBuffer
	c := New(&stderr, LogInfo)
	c.configPath = filepath.Join(dir, "missing.toml")
	c.logFile = logPath
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	c.Logger.Info("layout computed", "cols", 3)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	for name, out := range map[string]string{"file": string(data), "stderr": stderr.String()} {
		if !strings.Contains(out, "layout computed") {
			t.Errorf("%s output missing message: %q", name, out)
		}
	}
	if c.logWriter() != c.out {
		t.Error("logWriter() still includes the closed log file")
	}
}

func TestLogFormatFromConfig(t *testing.T) {
	var stderr syncBuffer
	c := New(&stderr, LogInfo)
	c.configPath = writeConfig(t, "[log]\nformat = \"json\"\n")
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	c.Logger.Info("reflow", "cols", 3)
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(stderr.String())), &rec); err != nil {
		t.Fatalf("log line is not JSON: %q", stderr.String())
	}
	if rec["msg"] != "reflow" || rec["cols"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
}
