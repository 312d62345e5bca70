package rules

import (
	"strings"

	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

type disorderKind int

const (
	disorderUnknown disorderKind = iota + 1
	disorderDuplicate
	disorderMissing
	disorderMisplaced
	// disorderRepeated means want itself lists train twice.
	disorderRepeated
)

// disorder is the first difference found between an expected vehicle order
// and a produced one. pos is zero-based and only set for unknown, duplicate
// and misplaced vehicles.
type disorder struct {
	kind  disorderKind
	train yard.TrainID
	want  yard.TrainID
	pos   int
}

// firstDisorder compares got against want in a single pass over each slice.
// Checks run in a fixed order: a vehicle repeated in want, foreign vehicles,
// repeated vehicles, dropped vehicles, then the first position holding the
// wrong vehicle. Past the first four checks got and want have equal length.
func firstDisorder(want, got []yard.TrainID) (disorder, bool) {
	if id, pos, ok := repeatedTrain(want); ok {
		return disorder{kind: disorderRepeated, train: id, pos: pos}, true
	}

	wantSet := make(map[yard.TrainID]struct{}, len(want))
	for _, id := range want {
		wantSet[id] = struct{}{}
	}

	seen := make(map[yard.TrainID]struct{}, len(got))
	for i, id := range got {
		if _, ok := wantSet[id]; !ok {
			return disorder{kind: disorderUnknown, train: id, pos: i}, true
		}
		if _, dup := seen[id]; dup {
			return disorder{kind: disorderDuplicate, train: id, pos: i}, true
		}
		seen[id] = struct{}{}
	}

	for _, id := range want {
		if _, ok := seen[id]; !ok {
			return disorder{kind: disorderMissing, train: id}, true
		}
	}

	for i := range want {
		if want[i] != got[i] {
			return disorder{kind: disorderMisplaced, train: got[i], want: want[i], pos: i}, true
		}
	}

	return disorder{}, false
}

// repeatedTrain returns the first vehicle listed twice in ids and the
// zero-based position of the repeat.
func repeatedTrain(ids []yard.TrainID) (yard.TrainID, int, bool) {
	seen := make(map[yard.TrainID]struct{}, len(ids))
	for i, id := range ids {
		if _, ok := seen[id]; ok {
			return id, i, true
		}
		seen[id] = struct{}{}
	}
	return "", 0, false
}

func concat(a, b []yard.TrainID) []yard.TrainID {
	out := make([]yard.TrainID, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func equalOrder(a, b []yard.TrainID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// relativeOrderBreak reports the first pair of group vehicles whose relative
// order is reversed in seq. Vehicles of group absent from seq are ignored.
func relativeOrderBreak(group, seq []yard.TrainID) (earlier, later yard.TrainID, broken bool) {
	pos := make(map[yard.TrainID]int, len(seq))
	for i, id := range seq {
		pos[id] = i
	}

	last := -1
	var lastID yard.TrainID
	for _, id := range group {
		p, ok := pos[id]
		if !ok {
			continue
		}
		if p < last {
			return lastID, id, true
		}
		last, lastID = p, id
	}
	return "", "", false
}

func joinIDs(ids []yard.TrainID) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(id))
	}
	b.WriteByte(']')
	return b.String()
}
