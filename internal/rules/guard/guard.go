package guard

import (
	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/rules/guard/eval"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

const namePrefix = "guard:"

// Guard is one compiled node of a guard chain. The action passes while Cond
// holds; otherwise it is rejected with Reason.
type Guard struct {
	Node   string
	Reason string
	cond   *eval.Compiled
}

func (g *Guard) Name() string { return namePrefix + g.Node }

// Cond returns the source of the guard condition.
func (g *Guard) Cond() string {
	if g.cond == nil {
		return ""
	}
	return g.cond.Source
}

func (g *Guard) Evaluate(s yard.Snapshot, a yard.Action) rules.Verdict {
	ok, err := g.cond.Eval(Env(s, a))
	if err != nil {
		return rules.Invalid("guard %s could not be evaluated: %v", g.Node, err)
	}
	if !ok {
		return rules.Invalid("%s", g.Reason)
	}
	return rules.Valid()
}

// Chain is an ordered list of guards compiled from one DOT document.
type Chain struct {
	Name   string
	Guards []*Guard
}

// Rules returns the guards in chain order.
func (c *Chain) Rules() []rules.Rule {
	if c == nil {
		return nil
	}
	out := make([]rules.Rule, 0, len(c.Guards))
	for _, g := range c.Guards {
		out = append(out, g)
	}
	return out
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Guards)
}
