package rules

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a rules YAML file containing an ordered list of rule sets.
func LoadFile(filePath string) ([]RuleSet, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading rules file %q: %w", filePath, err)
	}

	return Parse(data)
}

// Parse decodes rules YAML. Both a bare list of rule sets and a document with
// a top-level "rules" key are accepted.
func Parse(data []byte) ([]RuleSet, error) {
	var sets []RuleSet

	if err := yaml.Unmarshal(data, &sets); err == nil {
		return sets, nil
	}

	var wrapped struct {
		Rules []RuleSet `yaml:"rules"`
	}

	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	return wrapped.Rules, nil
}

// Match filters rule sets whose glob matches the chart name. Matching is
// case-insensitive; an empty or "*" pattern matches everything. Order is
// preserved so later rule sets keep overwriting earlier ones.
func Match(sets []RuleSet, chartName string) []RuleSet {
	name := strings.ToLower(chartName)

	var matched []RuleSet

	for _, set := range sets {
		pattern := strings.ToLower(strings.TrimSpace(set.Match))
		if pattern == "" || pattern == "*" {
			matched = append(matched, set)
			continue
		}

		if ok, err := path.Match(pattern, name); err == nil && ok {
			matched = append(matched, set)
		}
	}

	return matched
}
