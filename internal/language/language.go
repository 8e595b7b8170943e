package language

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Canonical returns the canonical form of a BCP 47 tag, or "" when the
// value does not parse.
func Canonical(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}

// DisplayName returns the English name of a tag, e.g. "German" for "de".
// Unknown or invalid tags return the input unchanged.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// Label renders "de (German)" style labels for tables.
func Label(code string) string {
	name := DisplayName(code)
	if name == code {
		return code
	}
	return code + " (" + name + ")"
}

// NormalizeList splits comma separated entries, canonicalizes each tag and
// drops duplicates, preserving first-seen order. Invalid tags are returned
// separately.
func NormalizeList(values []string) (tags, invalid []string) {
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			canonical := Canonical(part)
			if canonical == "" {
				invalid = append(invalid, part)
				continue
			}
			if !slices.Contains(tags, canonical) {
				tags = append(tags, canonical)
			}
		}
	}
	return tags, invalid
}
