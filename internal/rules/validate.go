package rules

import "fmt"

// Result reports the outcome of Validate.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks a rule's shape without touching storage: the variant must be
// known, each part must carry a value (or the key it requires), and composites
// may not nest. Referenced entities are not checked.
func Validate(rule Rule) Result {
	errs := validateRule(rule, "rule", true)
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validateRule(rule Rule, path string, allowComposite bool) []string {
	if rule == nil {
		return []string{path + " is required"}
	}
	switch r := rule.(type) {
	case CuisineRule:
		if r.Value == "" && r.CuisineID == "" {
			return []string{path + ".value is required for cuisine rules"}
		}
	case RegionRule:
		if r.Value == "" && r.LocationID == "" {
			return []string{path + ".value is required for region rules"}
		}
	case TagRule:
		if _, ok := ParseDimension(string(r.Dimension)); !ok {
			return []string{fmt.Sprintf("%s.type %q is not a recognized rule type", path, r.Dimension)}
		}
		if len(r.Slugs) == 0 {
			return []string{fmt.Sprintf("%s.value is required for %s rules", path, r.Dimension)}
		}
	case CompositeRule:
		if !allowComposite {
			return []string{path + " composite rules cannot be nested"}
		}
		if len(r.Parts) == 0 {
			return []string{path + ".rules must contain at least one rule"}
		}
		var errs []string
		for i, part := range r.Parts {
			errs = append(errs, validateRule(part, fmt.Sprintf("%s.rules[%d]", path, i), false)...)
		}
		return errs
	default:
		return []string{fmt.Sprintf("%s has unsupported variant %T", path, rule)}
	}
	return nil
}
