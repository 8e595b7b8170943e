package logs_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recipeforge/internal/logs"
)

const (
	lineGenerate  = `{"time":"2026-01-01T12:00:00Z","level":"INFO","msg":"item generated","component":"generation","job_id":"job-1","index":0}`
	lineTranslate = `{"time":"2026-01-01T12:00:01Z","level":"WARN","msg":"translation failed","component":"translation","job_id":"job-2"}`
	lineDebug     = `{"time":"2026-01-01T12:00:02Z","level":"DEBUG","msg":"poll","component":"worker"}`
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipeforge-current.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a", "b", "c")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailFiltersByJobAndLevel(t *testing.T) {
	path := writeLog(t, lineGenerate, lineTranslate, lineDebug, "not json")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1, Limit: 10, Filter: logs.Filter{JobID: "job-2"},
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != lineTranslate {
		t.Fatalf("unexpected job lines: %#v", result.Lines)
	}

	info := slog.LevelInfo
	result, err = logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: 0, Filter: logs.Filter{MinLevel: &info},
	})
	if err != nil {
		t.Fatalf("tail from start: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected info and warn lines, got %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v %v", result, err)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestEntryFormat(t *testing.T) {
	entry, ok := logs.ParseLine(lineGenerate)
	if !ok {
		t.Fatal("expected JSON line to parse")
	}
	if entry.Level != slog.LevelInfo || entry.Component != "generation" || entry.JobID != "job-1" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	got := entry.Format()
	for _, want := range []string{"INFO", "[generation] item generated", "job_id=job-1", "index=0"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if logs.FormatLine("plain text") != "plain text" {
		t.Fatal("expected non-JSON line to pass through")
	}
}

func TestZeroFilterKeepsEverything(t *testing.T) {
	var filter logs.Filter
	if !filter.Empty() {
		t.Fatal("expected zero filter to be empty")
	}
	for _, line := range []string{lineGenerate, lineDebug, "not json"} {
		if !filter.MatchLine(line) {
			t.Fatalf("zero filter dropped %q", line)
		}
	}

	warn := slog.LevelWarn
	floor := logs.Filter{MinLevel: &warn}
	if floor.Empty() || floor.MatchLine(lineGenerate) || !floor.MatchLine(lineTranslate) {
		t.Fatal("expected warn floor to keep only the warning")
	}
}
