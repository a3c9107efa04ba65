package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"livecatalog/internal/config"
	"livecatalog/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "livecatalog.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "recorder").Info("frame saved",
		logging.String(logging.FieldFrameID, "f-1"),
		logging.String("note", "two words"),
	)
	logger.Debug("filtered out")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO recorder: frame saved") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "frame_id=f-1") || !strings.Contains(line, `note="two words"`) {
		t.Fatalf("expected formatted fields, got %q", line)
	}
	if strings.Contains(line, "filtered out") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerCarriesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithFrameID(logging.WithSessionID(context.Background(), "s-1"), "f-9")
	logging.WithContext(ctx, logger).Warn("save failed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["level"] != "warn" || entry["msg"] != "save failed" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry[logging.FieldSessionID] != "s-1" || entry[logging.FieldFrameID] != "f-9" {
		t.Fatalf("expected context fields, got %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "disk low", "storage_warning")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"event_type=storage_warning", "error_hint=", "impact="} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestConsoleLoggerPrefixesSessionAndElidesImages(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	image := "data:image/jpeg;base64," + strings.Repeat("A", 4096)
	logging.NewComponentLogger(logger, "recorder").Info("frame captured",
		logging.String(logging.FieldSessionID, "3f2a9c1e-0000-4000-8000-000000000000"),
		logging.String("image", image),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "recorder[3f2a9c1e]: frame captured") {
		t.Fatalf("expected session prefix, got %q", line)
	}
	if strings.Contains(line, strings.Repeat("A", 100)) {
		t.Fatalf("expected image payload elided, got %d bytes", len(line))
	}
	if !strings.Contains(line, "data:image/jpeg;base64,<4.0 KiB>") {
		t.Fatalf("expected elided data url, got %q", line)
	}
}

func TestJSONLoggerElidesImages(t *testing.T) {
	var buf bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "elide.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("edited", logging.String("url", "data:image/png;base64,"+strings.Repeat("B", 200)))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	buf.Write(bytes.TrimSpace(content))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["url"] != "data:image/png;base64,<222 B>" {
		t.Fatalf("unexpected url field %v", entry["url"])
	}
}
