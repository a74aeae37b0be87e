package rules

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// RuleFile is the on-disk rule set.
//
//	rules:
//	  - id: high-amount
//	    kind: transaction
//	    expression: "amount > 10000.0 ? 0.7 : 0.3"
//	    enabled: true
type RuleFile struct {
	Rules []*RuleConfig `yaml:"rules"`
}

// ParseRules decodes a YAML rule set. Unknown fields are rejected.
func ParseRules(data []byte) ([]*RuleConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f RuleFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", r.ID)
		}
		seen[r.ID] = true
		if r.Kind == "" {
			r.Kind = domain.KindTransaction
		}
	}
	return f.Rules, nil
}

// LoadFile reads a YAML rule set from path.
func LoadFile(path string) ([]*RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// Merge overlays rules onto base by ID. Rules in overlay with a new ID are
// appended; a disabled overlay rule switches the base rule off.
func Merge(base, overlay []*RuleConfig) []*RuleConfig {
	out := make([]*RuleConfig, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base))
	for _, r := range base {
		index[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range overlay {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
