package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goyaml "gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

type Policy struct {
	Version string `yaml:"version" json:"version"`
	Gates   []Gate `yaml:"gates" json:"gates"`
}

// Gate bounds one metric for every result whose module or key matches one of
// the Modules globs.
type Gate struct {
	ID      string   `yaml:"id" json:"id"`
	Modules []string `yaml:"modules" json:"modules"`
	Metric  string   `yaml:"metric" json:"metric"`
	Min     *float64 `yaml:"min" json:"min,omitempty"`
	Max     *float64 `yaml:"max" json:"max,omitempty"`
	Message string   `yaml:"message" json:"message,omitempty"`
}

func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	var p Policy
	if err := goyaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

func (p Policy) Validate() error {
	seen := map[string]bool{}
	for i, g := range p.Gates {
		switch {
		case g.ID == "":
			return fmt.Errorf("gate %d: missing id", i)
		case seen[g.ID]:
			return fmt.Errorf("gate %s: duplicate id", g.ID)
		case len(g.Modules) == 0:
			return fmt.Errorf("gate %s: no modules", g.ID)
		case g.Metric == "":
			return fmt.Errorf("gate %s: missing metric", g.ID)
		case g.Min == nil && g.Max == nil:
			return fmt.Errorf("gate %s: needs min or max", g.ID)
		}
		for _, m := range g.Modules {
			if _, err := filepath.Match(m, ""); err != nil {
				return fmt.Errorf("gate %s: bad module pattern %q: %w", g.ID, m, err)
			}
		}
		seen[g.ID] = true
	}
	return nil
}

// Evaluate returns one violation per failed check, sorted. A gate whose
// patterns select nothing, a selected result that errored, and a selected
// result without the metric are all violations.
func Evaluate(policy Policy, s types.Summary) []string {
	violations := make([]string, 0)
	for _, gate := range policy.Gates {
		prefix := gate.ID
		if gate.Message != "" {
			prefix = gate.Message
		}
		selected := 0
		for _, r := range s.Results {
			if !selects(gate.Modules, r) {
				continue
			}
			selected++
			if r.Error != "" {
				violations = append(violations, fmt.Sprintf("%s: %s failed: %s", prefix, r.Key, r.Error))
				continue
			}
			v, ok := r.MetricValues()[gate.Metric]
			if !ok {
				violations = append(violations, fmt.Sprintf("%s: %s has no %s", prefix, r.Key, gate.Metric))
				continue
			}
			if gate.Min != nil && v < *gate.Min {
				violations = append(violations, fmt.Sprintf("%s: %s %s=%v below minimum %v", prefix, r.Key, gate.Metric, v, *gate.Min))
			}
			if gate.Max != nil && v > *gate.Max {
				violations = append(violations, fmt.Sprintf("%s: %s %s=%v above maximum %v", prefix, r.Key, gate.Metric, v, *gate.Max))
			}
		}
		if selected == 0 {
			violations = append(violations, fmt.Sprintf("%s: no results for %s", prefix, strings.Join(gate.Modules, ", ")))
		}
	}
	sort.Strings(violations)
	return violations
}

func selects(patterns []string, r types.ModuleResult) bool {
	for _, p := range patterns {
		if match(r.Module, p) || match(r.Key, p) {
			return true
		}
	}
	return false
}

func match(value, pattern string) bool {
	ok, _ := filepath.Match(pattern, value)
	return ok
}
