package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"recipeforge/internal/logging"
)

// Entry is one parsed log record.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	JobID     string
	Attrs     map[string]any
	Raw       string
}

var reservedKeys = []string{slog.TimeKey, slog.LevelKey, slog.MessageKey, logging.FieldComponent, logging.FieldJobID}

// ParseLine decodes a JSON log record. Lines that are not JSON objects
// return ok=false.
func ParseLine(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return Entry{}, false
	}
	entry := Entry{Raw: line, Attrs: map[string]any{}}
	if ts, ok := fields[slog.TimeKey].(string); ok {
		entry.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if lvl, ok := fields[slog.LevelKey].(string); ok {
		_ = entry.Level.UnmarshalText([]byte(lvl))
	}
	entry.Message, _ = fields[slog.MessageKey].(string)
	entry.Component, _ = fields[logging.FieldComponent].(string)
	entry.JobID, _ = fields[logging.FieldJobID].(string)
	for key, value := range fields {
		if !slices.Contains(reservedKeys, key) {
			entry.Attrs[key] = value
		}
	}
	return entry, true
}

// Filter selects records. Zero fields match everything; a nil MinLevel has
// no level floor.
type Filter struct {
	JobID     string
	Component string
	MinLevel  *slog.Level
}

// Empty reports whether the filter accepts every record.
func (f Filter) Empty() bool {
	return f.JobID == "" && f.Component == "" && f.MinLevel == nil
}

// MatchLine applies the filter to a raw line. Unparseable lines only pass
// an empty filter.
func (f Filter) MatchLine(line string) bool {
	if f.Empty() {
		return true
	}
	entry, ok := ParseLine(line)
	return ok && f.Match(entry)
}

// Match applies the filter to a parsed record.
func (f Filter) Match(entry Entry) bool {
	if f.MinLevel != nil && entry.Level < *f.MinLevel {
		return false
	}
	if f.JobID != "" && entry.JobID != f.JobID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(entry.Component, f.Component) {
		return false
	}
	return true
}

// Format renders a record as a single human-readable line.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", e.Level.String())
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	if e.JobID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldJobID, e.JobID)
	}
	keys := make([]string, 0, len(e.Attrs))
	for key := range e.Attrs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Attrs[key])
	}
	return b.String()
}

// FormatLine renders a raw line, falling back to the line itself when it is
// not a JSON record.
func FormatLine(line string) string {
	if entry, ok := ParseLine(line); ok {
		return entry.Format()
	}
	return line
}
