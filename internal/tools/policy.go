package tools

import (
	"fmt"
	"regexp"
)

// FieldPolicy describes operator-configured rules for a single argument.
type FieldPolicy struct {
	// Regex validates string value format.
	Regex string
	// Min sets numeric minimum.
	Min *float64
	// Max sets numeric maximum.
	Max *float64
	// MinLength sets string minimum length.
	MinLength *int
	// MaxLength sets string maximum length.
	MaxLength *int
}

type fieldPolicies struct {
	rules    map[string]FieldPolicy
	compiled map[string]*regexp.Regexp
}

func compilePolicies(tool string, rules map[string]FieldPolicy) (*fieldPolicies, error) {
	compiled := make(map[string]*regexp.Regexp, len(rules))
	for field, rule := range rules {
		if rule.Regex == "" {
			continue
		}
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("tool %s: invalid regex for field %s: %w", tool, field, err)
		}
		compiled[field] = re
	}
	return &fieldPolicies{rules: rules, compiled: compiled}, nil
}

// check applies the rules to top-level arguments. Array values are checked element-wise.
func (p *fieldPolicies) check(args map[string]any) error {
	if p == nil {
		return nil
	}
	for field, rule := range p.rules {
		value, ok := args[field]
		if !ok {
			continue
		}
		if items, ok := value.([]any); ok {
			for _, item := range items {
				if err := p.checkValue(field, rule, item); err != nil {
					return err
				}
			}
			continue
		}
		if err := p.checkValue(field, rule, value); err != nil {
			return err
		}
	}
	return nil
}

func (p *fieldPolicies) checkValue(field string, rule FieldPolicy, value any) error {
	switch v := value.(type) {
	case string:
		if rule.MinLength != nil && len(v) < *rule.MinLength {
			return fmt.Errorf("field %s is too short", field)
		}
		if rule.MaxLength != nil && len(v) > *rule.MaxLength {
			return fmt.Errorf("field %s is too long", field)
		}
		if re := p.compiled[field]; re != nil && !re.MatchString(v) {
			return fmt.Errorf("field %s does not match required format", field)
		}
	case float64:
		if rule.Min != nil && v < *rule.Min {
			return fmt.Errorf("field %s is below minimum value", field)
		}
		if rule.Max != nil && v > *rule.Max {
			return fmt.Errorf("field %s is above maximum value", field)
		}
	}
	return nil
}
