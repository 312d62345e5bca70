package rules

import "github.com/awmpietro/shunting-action-validator/internal/yard"

const UnitExistsRuleName = "unit_exists"

// UnitExistsRule rejects actions that reference units missing from the
// snapshot. Register it ahead of rules that read unit contents.
type UnitExistsRule struct{}

func NewUnitExistsRule() UnitExistsRule { return UnitExistsRule{} }

func (UnitExistsRule) Name() string { return UnitExistsRuleName }

func (UnitExistsRule) Evaluate(s yard.Snapshot, a yard.Action) Verdict {
	switch act := a.(type) {
	case yard.Combine:
		if act.First == "" || act.Second == "" {
			return Invalid("combine into %q must name both units", act.Target)
		}
		return requireUnits(s, act.First, act.Second)
	case yard.Split, yard.Move, yard.Wait:
		if act.Unit() == "" {
			return Invalid("%s action has no target unit", act.Kind())
		}
		return requireUnits(s, act.Unit())
	default:
		return Valid()
	}
}

func requireUnits(s yard.Snapshot, ids ...yard.UnitID) Verdict {
	for _, id := range ids {
		if _, ok := s.UnitTrains(id); !ok {
			return Invalid("unknown shunting unit %q", id)
		}
	}
	return Valid()
}
