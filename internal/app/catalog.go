package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awmpietro/shunting-action-validator/internal/rules"
)

var catalog = map[string]func() rules.Rule{
	rules.UnitExistsRuleName:    func() rules.Rule { return rules.NewUnitExistsRule() },
	rules.OrderPreserveRuleName: func() rules.Rule { return rules.NewOrderPreserveRule() },
}

// DefaultRuleNames is the base rule order used when none is configured.
var DefaultRuleNames = []string{rules.UnitExistsRuleName, rules.OrderPreserveRuleName}

// BuildRules instantiates the named built-in rules in the given order.
func BuildRules(names []string) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(names))
	seen := map[string]bool{}

	for _, name := range names {
		name = strings.TrimSpace(name)
		newRule, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(KnownRules(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("rule %q listed twice", name)
		}
		seen[name] = true
		out = append(out, newRule())
	}

	return out, nil
}

func KnownRules() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
