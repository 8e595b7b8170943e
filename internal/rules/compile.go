package rules

import (
	"context"
	"fmt"
	"strings"

	"recipeforge/internal/services"
)

// Context carries the collection-side inputs of a compile: the foreign keys
// stored on the collection and its curation lists.
type Context struct {
	CuisineID  string
	LocationID string
	Pinned     []string
	Excluded   []string
}

// TagResolver maps tag slugs within a dimension to tag ids. Unknown slugs are
// omitted from the result rather than reported as errors.
type TagResolver interface {
	ResolveTagSlugs(ctx context.Context, dim Dimension, slugs []string) ([]string, error)
}

// Compile turns a rule into a Predicate. Cuisine and region rules use the key
// stored on the Context and fall back to the key carried by the rule; the
// string value is never re-resolved. Tag rules resolve slugs through resolver.
// Parts of a composite rule are combined with OR. A nil rule compiles to a
// predicate that only admits pinned recipes.
func Compile(ctx context.Context, rule Rule, cctx Context, resolver TagResolver) (Predicate, error) {
	pred := Predicate{
		pinned:   dedupe(cctx.Pinned),
		excluded: dedupe(cctx.Excluded),
	}
	if rule == nil {
		return pred, nil
	}
	if result := Validate(rule); !result.Valid {
		return Predicate{}, services.Wrap(services.ErrValidation, "rules", "compile", strings.Join(result.Errors, "; "), nil)
	}
	for _, part := range Flatten(rule) {
		c, err := compilePart(ctx, part, cctx, resolver)
		if err != nil {
			return Predicate{}, err
		}
		pred.clauses = append(pred.clauses, c)
	}
	return pred, nil
}

func compilePart(ctx context.Context, rule Rule, cctx Context, resolver TagResolver) (clause, error) {
	switch r := rule.(type) {
	case CuisineRule:
		id := cctx.CuisineID
		if id == "" {
			id = r.CuisineID
		}
		if id == "" {
			return clause{}, services.Wrap(services.ErrValidation, "rules", "compile", fmt.Sprintf("cuisine rule %q has no resolved cuisine id", r.Value), nil)
		}
		return clause{kind: clauseCuisine, ids: []string{id}}, nil
	case RegionRule:
		id := cctx.LocationID
		if id == "" {
			id = r.LocationID
		}
		if id == "" {
			return clause{}, services.Wrap(services.ErrValidation, "rules", "compile", fmt.Sprintf("region rule %q has no resolved location id", r.Value), nil)
		}
		return clause{kind: clauseLocation, ids: []string{id}}, nil
	case TagRule:
		if resolver == nil {
			return clause{}, services.Wrap(services.ErrConfiguration, "rules", "compile", "tag resolver unavailable", nil)
		}
		ids, err := resolver.ResolveTagSlugs(ctx, r.Dimension, r.Slugs)
		if err != nil {
			return clause{}, fmt.Errorf("resolve %s tags: %w", r.Dimension, err)
		}
		return clause{kind: clauseTags, ids: dedupe(ids)}, nil
	default:
		return clause{}, services.Wrap(services.ErrValidation, "rules", "compile", fmt.Sprintf("unsupported rule %T", rule), nil)
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
