package content

import (
	"encoding/json"

	"recipeforge/internal/rules"
)

// MarshalJSON renders the rule in its tagged JSON form alongside a description.
func (c Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	var raw json.RawMessage
	if c.Rule != nil {
		encoded, err := rules.Encode(c.Rule)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(struct {
		plain
		Rule            json.RawMessage `json:"rule,omitempty"`
		RuleDescription string          `json:"ruleDescription"`
	}{plain: plain(c), Rule: raw, RuleDescription: rules.Describe(c.Rule)})
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (c *Collection) UnmarshalJSON(data []byte) error {
	type plain Collection
	var wire struct {
		plain
		Rule json.RawMessage `json:"rule,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = Collection(wire.plain)
	if len(wire.Rule) > 0 && string(wire.Rule) != "null" {
		rule, err := rules.Decode(wire.Rule)
		if err != nil {
			return err
		}
		c.Rule = rule
	}
	return nil
}
