package guard

import "github.com/awmpietro/shunting-action-validator/internal/yard"

// Schema lists the variables a guard condition may reference, with zero
// values of the types Env produces.
func Schema() map[string]any {
	return map[string]any{
		"kind":     "",
		"unit":     "",
		"vehicles": 0,
		"front":    0,
		"rear":     0,
		"units":    0,
	}
}

// Env derives the guard variables for one action against a snapshot.
func Env(s yard.Snapshot, a yard.Action) map[string]any {
	env := Schema()
	if a == nil {
		return env
	}

	env["kind"] = string(a.Kind())
	env["unit"] = string(a.Unit())

	if s == nil {
		return env
	}
	env["units"] = len(s.Units())

	switch act := a.(type) {
	case yard.Combine:
		first, _ := s.UnitTrains(act.First)
		second, _ := s.UnitTrains(act.Second)
		env["vehicles"] = len(first) + len(second)
	case yard.Split:
		trains, _ := s.UnitTrains(act.Target)
		env["vehicles"] = len(trains)
		front, rear := splitSizes(len(trains), act.By)
		env["front"] = front
		env["rear"] = rear
	default:
		trains, _ := s.UnitTrains(a.Unit())
		env["vehicles"] = len(trains)
	}

	return env
}

func splitSizes(n int, by yard.SplitParams) (int, int) {
	switch p := by.(type) {
	case yard.SplitAt:
		idx := min(max(p.Index, 0), n)
		return idx, n - idx
	case yard.SplitGroups:
		return len(p.Front), len(p.Rear)
	}
	return 0, 0
}
