package yard

import (
	"errors"
	"testing"
)

func TestNewState_CopiesInputAndSortsUnits(t *testing.T) {
	in := map[UnitID][]TrainID{
		"track-b": {"C"},
		"track-a": {"A", "B"},
	}

	s, err := NewState(in)
	if err != nil {
		t.Fatal(err)
	}

	in["track-a"][0] = "Z"

	got, ok := s.UnitTrains("track-a")
	if !ok {
		t.Fatalf("expected track-a to exist")
	}
	if got[0] != "A" || got[1] != "B" {
		t.Fatalf("expected snapshot to be isolated from input, got %#v", got)
	}

	units := s.Units()
	if len(units) != 2 || units[0] != "track-a" || units[1] != "track-b" {
		t.Fatalf("unexpected unit order: %#v", units)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 vehicles, got %d", s.Len())
	}
}

func TestState_UnitTrainsReturnsCopy(t *testing.T) {
	s, err := NewState(map[UnitID][]TrainID{"u": {"A", "B"}})
	if err != nil {
		t.Fatal(err)
	}

	first, _ := s.UnitTrains("u")
	first[0] = "X"

	second, _ := s.UnitTrains("u")
	if second[0] != "A" {
		t.Fatalf("expected accessor to return a copy, got %#v", second)
	}
}

func TestNewState_RejectsDuplicateTrain(t *testing.T) {
	_, err := NewState(map[UnitID][]TrainID{
		"u1": {"A", "B"},
		"u2": {"B"},
	})
	if !errors.Is(err, ErrDuplicateTrain) {
		t.Fatalf("expected ErrDuplicateTrain, got %v", err)
	}

	_, err = NewState(map[UnitID][]TrainID{"u1": {"A", "A"}})
	if !errors.Is(err, ErrDuplicateTrain) {
		t.Fatalf("expected ErrDuplicateTrain within a unit, got %v", err)
	}
}

func TestNewState_RejectsEmptyIDs(t *testing.T) {
	if _, err := NewState(map[UnitID][]TrainID{"": {"A"}}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID for unit, got %v", err)
	}
	if _, err := NewState(map[UnitID][]TrainID{"u": {""}}); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID for train, got %v", err)
	}
}

func TestNilState_IsEmpty(t *testing.T) {
	var s *State
	if _, ok := s.UnitTrains("u"); ok {
		t.Fatalf("expected nil state to have no units")
	}
	if s.Len() != 0 || len(s.Units()) != 0 {
		t.Fatalf("expected nil state to be empty")
	}
}

func TestActions_KindAndUnit(t *testing.T) {
	cases := []struct {
		action Action
		kind   Kind
		unit   UnitID
	}{
		{Move{Target: "u1", From: "t1", To: "t2"}, KindMove, "u1"},
		{Wait{Target: "u2"}, KindWait, "u2"},
		{Split{Target: "u3", By: SplitAt{Index: 1}}, KindSplit, "u3"},
		{Combine{Target: "u4", First: "a", Second: "b"}, KindCombine, "u4"},
	}

	for _, tc := range cases {
		if tc.action.Kind() != tc.kind {
			t.Fatalf("expected kind %q, got %q", tc.kind, tc.action.Kind())
		}
		if tc.action.Unit() != tc.unit {
			t.Fatalf("expected unit %q, got %q", tc.unit, tc.action.Unit())
		}
	}
}

func TestCombine_OrientationDefaultsToAppend(t *testing.T) {
	if got := (Combine{}).Orientation(); got != AttachAppend {
		t.Fatalf("expected append, got %q", got)
	}
	if got := (Combine{Attach: AttachPrepend}).Orientation(); got != AttachPrepend {
		t.Fatalf("expected prepend, got %q", got)
	}
}
