package rules

import (
	"fmt"

	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

// Verdict is the outcome of judging one action. Reason is empty exactly when
// Valid is true.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func Valid() Verdict {
	return Verdict{Valid: true}
}

func Invalid(format string, args ...any) Verdict {
	return Verdict{Valid: false, Reason: fmt.Sprintf(format, args...)}
}

func (v Verdict) wellFormed() bool {
	return v.Valid == (v.Reason == "")
}

// Rule judges an action against a snapshot. Implementations must be pure:
// same inputs, same verdict, no mutation of either argument. Rules return
// Valid for action variants they do not care about.
type Rule interface {
	Name() string
	Evaluate(s yard.Snapshot, a yard.Action) Verdict
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	ID string
	Fn func(s yard.Snapshot, a yard.Action) Verdict
}

func (f RuleFunc) Name() string { return f.ID }

func (f RuleFunc) Evaluate(s yard.Snapshot, a yard.Action) Verdict {
	return f.Fn(s, a)
}
