package textutil

import "strings"

// NormalizeName trims a name and collapses internal whitespace. Matching is
// exact after normalization; case is preserved.
func NormalizeName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeNames normalizes every entry, dropping blanks. The second return
// value counts entries that repeated an earlier one.
func NormalizeNames(values []string) ([]string, int) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	repeats := 0
	for _, value := range values {
		name := NormalizeName(value)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			repeats++
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, repeats
}
