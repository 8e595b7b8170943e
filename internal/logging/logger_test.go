package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recipeforge/internal/config"
	"recipeforge/internal/logging"
	"recipeforge/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("job created", logging.String(logging.FieldJobID, "job-1"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "recipeforge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", line, err)
	}
	if record["msg"] != "job created" || record["job_id"] != "job-1" {
		t.Fatalf("unexpected record %#v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller", logging.String(logging.FieldComponent, "generation"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	if !strings.Contains(text, "INFO generation: message without caller") {
		t.Fatalf("expected component prefix, got %q", text)
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", text)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "shown") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-9")
	ctx = services.WithTaskID(ctx, 7)
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldJobID] != "job-9" {
		t.Fatalf("job id = %v", record[logging.FieldJobID])
	}
	if record[logging.FieldTaskID] != float64(7) {
		t.Fatalf("task id = %v", record[logging.FieldTaskID])
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation id = %v", record[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "collection below minimum", "publish_unqualified")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := record[key]; !ok {
			t.Fatalf("expected %s in %#v", key, record)
		}
	}
	if record[logging.FieldEventType] != "publish_unqualified" {
		t.Fatalf("unexpected event type %v", record[logging.FieldEventType])
	}
}

func TestConsoleHandlerFlattensGroupsAndQuotes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-groups.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.With(logging.String(logging.FieldComponent, "translation")).
		WithGroup("job").
		Info("retry scheduled", logging.String("target", "pt-BR"), logging.String("reason", "rate limited"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"INFO translation: retry scheduled", "job.target=pt-BR", `job.reason="rate limited"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestFileCopyUsesTimeKeyAndKeepsLevelFilter(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "copy.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		OutputPaths: []string{filepath.Join(dir, "console.log")},
		FilePath:    filePath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", logging.String(logging.FieldJobID, "job-3"))

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", content)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if _, ok := record["time"]; !ok || record["level"] != "warn" || record[logging.FieldJobID] != "job-3" {
		t.Fatalf("unexpected record %#v", record)
	}
}

func TestTeeHandlerSkipsNil(t *testing.T) {
	var a, b bytes.Buffer
	h := logging.TeeHandler(nil, slog.NewJSONHandler(&a, nil), slog.NewTextHandler(&b, nil))
	slog.New(h).Info("published", logging.String(logging.FieldCollectionID, "c1"))
	if !strings.Contains(a.String(), `"collection_id":"c1"`) || !strings.Contains(b.String(), "collection_id=c1") {
		t.Fatalf("expected both handlers to receive the record: %q / %q", a.String(), b.String())
	}
	if logging.TeeHandler(nil) != slog.DiscardHandler {
		t.Fatal("expected discard handler when nothing remains")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	} {
		if got := logging.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
