package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeLLMJSON unmarshals a model reply into target. Replies wrapped in a
// markdown fence or surrounded by prose are narrowed to the outermost JSON
// object or array before giving up.
func DecodeLLMJSON(content string, target any) error {
	raw := strings.TrimSpace(content)
	if raw == "" {
		return errors.New("empty payload")
	}
	var firstErr error
	tried := map[string]bool{}
	for _, candidate := range jsonCandidates(raw) {
		if candidate == "" || tried[candidate] {
			continue
		}
		tried[candidate] = true
		err := json.Unmarshal([]byte(candidate), target)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("%w (payload snippet: %s)", firstErr, snippet(raw))
}

// jsonCandidates lists progressively narrower readings of raw.
func jsonCandidates(raw string) []string {
	unfenced := unfence(raw)
	return []string{
		raw,
		unfenced,
		enclosed(unfenced, '{', '}'),
		enclosed(unfenced, '[', ']'),
	}
}

// unfence strips a leading ``` or ```json line and the closing fence.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimLeft(s[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func enclosed(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// snippet flattens whitespace and truncates s for error messages.
func snippet(s string) string {
	flat := strings.Join(strings.Fields(s), " ")
	if flat == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(flat); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return flat
}
