package rules

import "github.com/awmpietro/shunting-action-validator/internal/yard"

const OrderPreserveRuleName = "order_preserve"

// OrderPreserveRule rejects Split and Combine actions that would change the
// front-to-back order of the vehicles involved. A valid split concatenates
// back to the original unit; a valid combine is one group followed by the
// other with both internal orders intact.
type OrderPreserveRule struct{}

func NewOrderPreserveRule() OrderPreserveRule { return OrderPreserveRule{} }

func (OrderPreserveRule) Name() string { return OrderPreserveRuleName }

func (r OrderPreserveRule) Evaluate(s yard.Snapshot, a yard.Action) Verdict {
	switch act := a.(type) {
	case yard.Split:
		return r.split(s, act)
	case yard.Combine:
		return r.combine(s, act)
	case yard.Move, yard.Wait:
		return Valid()
	default:
		return Valid()
	}
}

func (OrderPreserveRule) split(s yard.Snapshot, act yard.Split) Verdict {
	original, ok := s.UnitTrains(act.Target)
	if !ok {
		return Invalid("unknown shunting unit %q", act.Target)
	}
	if id, _, dup := repeatedTrain(original); dup {
		return Invalid("duplicate vehicle in unit %q: %s is listed more than once", act.Target, id)
	}

	var front, rear []yard.TrainID
	switch by := act.By.(type) {
	case yard.SplitAt:
		if by.Index < 0 || by.Index > len(original) {
			return Invalid("split index %d outside unit %q bounds [0, %d]", by.Index, act.Target, len(original))
		}
		front, rear = original[:by.Index], original[by.Index:]
	case yard.SplitGroups:
		front, rear = by.Front, by.Rear
	case nil:
		return Invalid("split of %q has no split point or groups", act.Target)
	default:
		return Invalid("split of %q has unsupported parameters %T", act.Target, act.By)
	}

	if len(front) == 0 {
		return Invalid("empty group not allowed: split of %q leaves the front group empty", act.Target)
	}
	if len(rear) == 0 {
		return Invalid("empty group not allowed: split of %q leaves the rear group empty", act.Target)
	}

	d, found := firstDisorder(original, concat(front, rear))
	if !found {
		return Valid()
	}

	switch d.kind {
	case disorderRepeated:
		return Invalid("duplicate vehicle in unit %q: %s is listed more than once", act.Target, d.train)
	case disorderUnknown:
		return Invalid("split of %q lists vehicle %s which is not part of the unit", act.Target, d.train)
	case disorderDuplicate:
		return Invalid("split of %q lists vehicle %s more than once", act.Target, d.train)
	case disorderMissing:
		return Invalid("split of %q drops vehicle %s", act.Target, d.train)
	default:
		group, pos := "front", d.pos
		if pos >= len(front) {
			group, pos = "rear", pos-len(front)
		}
		return Invalid("split of %q reorders vehicles %s: %s group position %d holds %s, expected %s",
			act.Target, joinIDs(original), group, pos+1, d.train, d.want)
	}
}

func (OrderPreserveRule) combine(s yard.Snapshot, act yard.Combine) Verdict {
	first, ok := s.UnitTrains(act.First)
	if !ok {
		return Invalid("unknown shunting unit %q", act.First)
	}
	second, ok := s.UnitTrains(act.Second)
	if !ok {
		return Invalid("unknown shunting unit %q", act.Second)
	}
	for _, g := range []struct {
		unit   yard.UnitID
		trains []yard.TrainID
	}{{act.First, first}, {act.Second, second}} {
		if id, _, dup := repeatedTrain(g.trains); dup {
			return Invalid("duplicate vehicle in unit %q: %s is listed more than once", g.unit, id)
		}
	}

	inFirst := make(map[yard.TrainID]struct{}, len(first))
	for _, id := range first {
		inFirst[id] = struct{}{}
	}
	for _, id := range second {
		if _, dup := inFirst[id]; dup {
			return Invalid("duplicate vehicle across groups: %s is in both %q and %q", id, act.First, act.Second)
		}
	}

	if len(first) == 0 {
		return Invalid("empty group not allowed: unit %q has no vehicles to combine", act.First)
	}
	if len(second) == 0 {
		return Invalid("empty group not allowed: unit %q has no vehicles to combine", act.Second)
	}

	var expected, opposite []yard.TrainID
	switch act.Orientation() {
	case yard.AttachAppend:
		expected, opposite = concat(first, second), concat(second, first)
	case yard.AttachPrepend:
		expected, opposite = concat(second, first), concat(first, second)
	default:
		return Invalid("unknown attachment orientation %q for combine of %q and %q", act.Attach, act.First, act.Second)
	}

	if act.Merged == nil {
		return Valid()
	}

	d, found := firstDisorder(expected, act.Merged)
	if !found {
		return Valid()
	}

	switch d.kind {
	case disorderRepeated:
		return Invalid("duplicate vehicle in unit %q: %s is listed more than once", ownerOf(d.train, inFirst, act), d.train)
	case disorderUnknown:
		return Invalid("merged unit lists vehicle %s which is in neither %q nor %q", d.train, act.First, act.Second)
	case disorderDuplicate:
		return Invalid("merged unit lists vehicle %s more than once", d.train)
	case disorderMissing:
		return Invalid("merged unit drops vehicle %s of %q", d.train, ownerOf(d.train, inFirst, act))
	}

	if equalOrder(act.Merged, opposite) {
		other := yard.AttachPrepend
		if act.Orientation() == yard.AttachPrepend {
			other = yard.AttachAppend
		}
		return Invalid("merged unit %s follows the %s orientation but the action declares %s",
			joinIDs(act.Merged), other, act.Orientation())
	}

	for _, g := range []struct {
		unit   yard.UnitID
		trains []yard.TrainID
	}{{act.First, first}, {act.Second, second}} {
		if earlier, later, broken := relativeOrderBreak(g.trains, act.Merged); broken {
			return Invalid("internal order of %q disturbed: %s now precedes %s", g.unit, later, earlier)
		}
	}

	return Invalid("group %q is broken up in merged unit %s: position %d holds %s, expected %s",
		ownerOf(d.want, inFirst, act), joinIDs(act.Merged), d.pos+1, d.train, d.want)
}

func ownerOf(id yard.TrainID, inFirst map[yard.TrainID]struct{}, act yard.Combine) yard.UnitID {
	if _, ok := inFirst[id]; ok {
		return act.First
	}
	return act.Second
}
