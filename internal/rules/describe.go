package rules

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Describe renders a rule for operators, e.g. "Scene: breakfast OR Method: steam".
func Describe(rule Rule) string {
	if rule == nil {
		return "No rule"
	}
	parts := Flatten(rule)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, describeOne(part))
	}
	return strings.Join(out, " OR ")
}

func describeOne(rule Rule) string {
	switch r := rule.(type) {
	case CuisineRule:
		return "Cuisine: " + firstNonEmpty(r.Value, r.CuisineID)
	case RegionRule:
		return "Region: " + firstNonEmpty(r.Value, r.LocationID)
	case TagRule:
		return titleCaser.String(string(r.Dimension)) + ": " + strings.Join(r.Slugs, ", ")
	case CompositeRule:
		return "(" + Describe(r) + ")"
	default:
		return "Unknown rule"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return "(unset)"
}
