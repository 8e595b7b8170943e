package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type identifies a rule variant in its JSON form.
type Type string

const (
	TypeCuisine   Type = "cuisine"
	TypeRegion    Type = "region"
	TypeScene     Type = "scene"
	TypeMethod    Type = "method"
	TypeTaste     Type = "taste"
	TypeCrowd     Type = "crowd"
	TypeOccasion  Type = "occasion"
	TypeComposite Type = "composite"
)

// Dimension is a tag axis used by tag-relation rules.
type Dimension string

const (
	DimensionScene    Dimension = "scene"
	DimensionMethod   Dimension = "method"
	DimensionTaste    Dimension = "taste"
	DimensionCrowd    Dimension = "crowd"
	DimensionOccasion Dimension = "occasion"
)

var dimensions = []Dimension{DimensionScene, DimensionMethod, DimensionTaste, DimensionCrowd, DimensionOccasion}

// Dimensions lists every tag dimension in display order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// ParseDimension normalizes a dimension name.
func ParseDimension(value string) (Dimension, bool) {
	normalized := Dimension(strings.ToLower(strings.TrimSpace(value)))
	for _, dim := range dimensions {
		if dim == normalized {
			return dim, true
		}
	}
	return "", false
}

// Rule is a closed set of rule variants: CuisineRule, RegionRule, TagRule and
// CompositeRule. Use Decode to build one from JSON.
type Rule interface {
	Type() Type
	isRule()
}

// CuisineRule matches recipes by cuisine foreign key. Value is the display
// slug; CuisineID is the resolved key used when the collection carries none.
type CuisineRule struct {
	Value     string
	CuisineID string
}

// RegionRule matches recipes by location foreign key.
type RegionRule struct {
	Value      string
	LocationID string
}

// TagRule matches recipes tagged with any of Slugs in the given dimension.
type TagRule struct {
	Dimension Dimension
	Slugs     []string
}

// CompositeRule combines several single-dimension rules with OR.
type CompositeRule struct {
	Parts []Rule
}

func (CuisineRule) Type() Type   { return TypeCuisine }
func (RegionRule) Type() Type    { return TypeRegion }
func (r TagRule) Type() Type     { return Type(r.Dimension) }
func (CompositeRule) Type() Type { return TypeComposite }

func (CuisineRule) isRule()   {}
func (RegionRule) isRule()    {}
func (TagRule) isRule()       {}
func (CompositeRule) isRule() {}

// wireRule is the JSON shape shared by every variant.
type wireRule struct {
	Type       Type              `json:"type"`
	Value      string            `json:"value,omitempty"`
	Values     []string          `json:"values,omitempty"`
	CuisineID  string            `json:"cuisineId,omitempty"`
	LocationID string            `json:"locationId,omitempty"`
	Rules      []json.RawMessage `json:"rules,omitempty"`
}

// ErrUnknownType is returned by Decode for an unrecognized discriminator.
var ErrUnknownType = errors.New("unknown rule type")

// Decode parses a rule from its JSON form. A tag rule accepts either a single
// value (comma separated slugs allowed) or a values array.
func Decode(data []byte) (Rule, error) {
	var wire wireRule
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}
	return fromWire(wire)
}

func fromWire(wire wireRule) (Rule, error) {
	kind := Type(strings.ToLower(strings.TrimSpace(string(wire.Type))))
	switch kind {
	case TypeCuisine:
		return CuisineRule{Value: strings.TrimSpace(wire.Value), CuisineID: strings.TrimSpace(wire.CuisineID)}, nil
	case TypeRegion:
		return RegionRule{Value: strings.TrimSpace(wire.Value), LocationID: strings.TrimSpace(wire.LocationID)}, nil
	case TypeComposite:
		parts := make([]Rule, 0, len(wire.Rules))
		for i, raw := range wire.Rules {
			var inner wireRule
			if err := json.Unmarshal(raw, &inner); err != nil {
				return nil, fmt.Errorf("decode rule: rules[%d]: %w", i, err)
			}
			part, err := fromWire(inner)
			if err != nil {
				return nil, fmt.Errorf("decode rule: rules[%d]: %w", i, err)
			}
			parts = append(parts, part)
		}
		return CompositeRule{Parts: parts}, nil
	}
	if dim, ok := ParseDimension(string(kind)); ok {
		return TagRule{Dimension: dim, Slugs: splitSlugs(wire.Value, wire.Values)}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownType, wire.Type)
}

// Encode renders a rule into its JSON form. A nil rule encodes to nil.
func Encode(rule Rule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	wire, err := toWire(rule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func toWire(rule Rule) (wireRule, error) {
	switch r := rule.(type) {
	case CuisineRule:
		return wireRule{Type: TypeCuisine, Value: r.Value, CuisineID: r.CuisineID}, nil
	case RegionRule:
		return wireRule{Type: TypeRegion, Value: r.Value, LocationID: r.LocationID}, nil
	case TagRule:
		wire := wireRule{Type: Type(r.Dimension)}
		if len(r.Slugs) == 1 {
			wire.Value = r.Slugs[0]
		} else {
			wire.Values = append([]string(nil), r.Slugs...)
		}
		return wire, nil
	case CompositeRule:
		wire := wireRule{Type: TypeComposite}
		for i, part := range r.Parts {
			inner, err := toWire(part)
			if err != nil {
				return wireRule{}, fmt.Errorf("rules[%d]: %w", i, err)
			}
			raw, err := json.Marshal(inner)
			if err != nil {
				return wireRule{}, err
			}
			wire.Rules = append(wire.Rules, raw)
		}
		return wire, nil
	default:
		return wireRule{}, fmt.Errorf("encode rule: unsupported variant %T", rule)
	}
}

// Flatten returns the single-dimension parts of a rule.
func Flatten(rule Rule) []Rule {
	if rule == nil {
		return nil
	}
	if composite, ok := rule.(CompositeRule); ok {
		return append([]Rule(nil), composite.Parts...)
	}
	return []Rule{rule}
}

// ReferencesTag reports whether the rule selects slug in the given dimension.
func ReferencesTag(rule Rule, dim Dimension, slug string) bool {
	for _, part := range Flatten(rule) {
		tag, ok := part.(TagRule)
		if !ok || tag.Dimension != dim {
			continue
		}
		for _, candidate := range tag.Slugs {
			if candidate == slug {
				return true
			}
		}
	}
	return false
}

func splitSlugs(value string, values []string) []string {
	raw := append([]string(nil), values...)
	if strings.TrimSpace(value) != "" {
		raw = append(raw, strings.Split(value, ",")...)
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		slug := strings.ToLower(strings.TrimSpace(candidate))
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}
