package rules

import (
	"slices"
	"strings"
)

type clauseKind int

const (
	clauseCuisine clauseKind = iota
	clauseLocation
	clauseTags
)

type clause struct {
	kind clauseKind
	ids  []string
}

// RecipeFacts is the subset of a recipe a predicate inspects.
type RecipeFacts struct {
	ID         string
	CuisineID  string
	LocationID string
	TagIDs     []string
}

// Predicate is a compiled membership test:
// (any clause matches OR pinned) AND NOT excluded.
type Predicate struct {
	clauses  []clause
	pinned   []string
	excluded []string
}

// Pinned returns the pinned recipe ids in order.
func (p Predicate) Pinned() []string { return slices.Clone(p.pinned) }

// Excluded returns the excluded recipe ids.
func (p Predicate) Excluded() []string { return slices.Clone(p.excluded) }

// HasRule reports whether the predicate carries any rule clause.
func (p Predicate) HasRule() bool { return len(p.clauses) > 0 }

// Matches evaluates the predicate in memory.
func (p Predicate) Matches(facts RecipeFacts) bool {
	if slices.Contains(p.excluded, facts.ID) {
		return false
	}
	if slices.Contains(p.pinned, facts.ID) {
		return true
	}
	for _, c := range p.clauses {
		switch c.kind {
		case clauseCuisine:
			if facts.CuisineID != "" && slices.Contains(c.ids, facts.CuisineID) {
				return true
			}
		case clauseLocation:
			if facts.LocationID != "" && slices.Contains(c.ids, facts.LocationID) {
				return true
			}
		case clauseTags:
			for _, tagID := range facts.TagIDs {
				if slices.Contains(c.ids, tagID) {
					return true
				}
			}
		}
	}
	return false
}

// SQL renders the predicate as a boolean expression over the recipes table
// aliased as alias. Placeholders use '?'.
func (p Predicate) SQL(alias string) (string, []any) {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}

	var (
		args  []any
		match []string
	)
	for _, c := range p.clauses {
		switch c.kind {
		case clauseCuisine:
			match = append(match, col("cuisine_id")+" IN ("+placeholders(len(c.ids))+")")
			args = appendArgs(args, c.ids)
		case clauseLocation:
			match = append(match, col("location_id")+" IN ("+placeholders(len(c.ids))+")")
			args = appendArgs(args, c.ids)
		case clauseTags:
			if len(c.ids) == 0 {
				match = append(match, "1 = 0")
				continue
			}
			match = append(match, col("id")+" IN (SELECT rt.recipe_id FROM recipe_tags rt WHERE rt.tag_id IN ("+placeholders(len(c.ids))+"))")
			args = appendArgs(args, c.ids)
		}
	}
	if len(p.pinned) > 0 {
		match = append(match, col("id")+" IN ("+placeholders(len(p.pinned))+")")
		args = appendArgs(args, p.pinned)
	}

	expr := "1 = 0"
	if len(match) > 0 {
		expr = "(" + strings.Join(match, " OR ") + ")"
	}
	if len(p.excluded) > 0 {
		expr += " AND " + col("id") + " NOT IN (" + placeholders(len(p.excluded)) + ")"
		args = appendArgs(args, p.excluded)
	}
	return expr, args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendArgs(args []any, values []string) []any {
	for _, value := range values {
		args = append(args, value)
	}
	return args
}
