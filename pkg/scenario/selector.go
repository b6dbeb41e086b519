package scenario

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Strategy is how a selector locates an element.
type Strategy string

// Selector strategies.
const (
	StrategyID    Strategy = "id"
	StrategyName  Strategy = "name"
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
)

// IsKnown reports whether s is one of the four supported strategies.
func (s Strategy) IsKnown() bool {
	switch s {
	case StrategyID, StrategyName, StrategyCSS, StrategyXPath:
		return true
	}
	return false
}

// Selector describes how to find one element. Pure data; the executor
// maps it to an engine expression.
type Selector struct {
	Strategy Strategy
	Value    string
}

// UnmarshalYAML accepts three shapes:
//
//	selector: "#login"                      (css)
//	selector: {id: login}                   (strategy as key)
//	selector: {strategy: id, value: login}
func (s *Selector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Strategy = StrategyCSS
		s.Value = node.Value
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: selector must be a string or a mapping", node.Line)
	}

	fields := map[string]string{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: selector %q must be a string", val.Line, key.Value)
		}
		fields[key.Value] = val.Value
	}

	if strategy, ok := fields["strategy"]; ok {
		value, hasValue := fields["value"]
		if !hasValue || len(fields) != 2 {
			return fmt.Errorf("line %d: selector with strategy needs exactly strategy and value", node.Line)
		}
		s.Strategy = Strategy(strategy)
		s.Value = value
		return nil
	}

	if len(fields) != 1 {
		return fmt.Errorf("line %d: selector must have exactly one strategy key, got %d", node.Line, len(fields))
	}
	for k, v := range fields {
		s.Strategy = Strategy(k)
		s.Value = v
	}
	return nil
}

// IsEmpty returns true if no selector was declared.
func (s Selector) IsEmpty() bool {
	return s.Strategy == "" && s.Value == ""
}

// String returns "strategy=value", e.g. id=loginBtn.
func (s Selector) String() string {
	if s.IsEmpty() {
		return ""
	}
	return string(s.Strategy) + "=" + s.Value
}

// MarshalJSON writes the canonical {strategy, value} form.
func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Strategy Strategy `json:"strategy"`
		Value    string   `json:"value"`
	}{s.Strategy, s.Value})
}
