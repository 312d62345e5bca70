package yard

import (
	"errors"
	"fmt"
	"sort"
)

type TrainID string

type UnitID string

var (
	ErrDuplicateTrain = errors.New("train appears in more than one position")
	ErrEmptyID        = errors.New("empty identifier")
)

// Snapshot is the read-only view rules evaluate against.
// Implementations must hand out copies so callers cannot mutate the snapshot.
type Snapshot interface {
	// UnitTrains returns the unit's vehicles in coupling order, front to back.
	UnitTrains(id UnitID) ([]TrainID, bool)
	Units() []UnitID
}

// State is an immutable yard snapshot. Each train occupies exactly one
// position across all units.
type State struct {
	units map[UnitID][]TrainID
	ids   []UnitID
	size  int
}

func NewState(units map[UnitID][]TrainID) (*State, error) {
	s := &State{
		units: make(map[UnitID][]TrainID, len(units)),
		ids:   make([]UnitID, 0, len(units)),
	}

	seen := make(map[TrainID]UnitID)
	for id, trains := range units {
		if id == "" {
			return nil, fmt.Errorf("unit id: %w", ErrEmptyID)
		}
		for _, t := range trains {
			if t == "" {
				return nil, fmt.Errorf("train id in unit %q: %w", id, ErrEmptyID)
			}
			if other, ok := seen[t]; ok {
				return nil, fmt.Errorf("train %q in units %q and %q: %w", t, other, id, ErrDuplicateTrain)
			}
			seen[t] = id
		}
		s.units[id] = append([]TrainID(nil), trains...)
		s.ids = append(s.ids, id)
		s.size += len(trains)
	}

	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s, nil
}

func (s *State) UnitTrains(id UnitID) ([]TrainID, bool) {
	if s == nil {
		return nil, false
	}
	trains, ok := s.units[id]
	if !ok {
		return nil, false
	}
	return append([]TrainID(nil), trains...), true
}

func (s *State) Units() []UnitID {
	if s == nil {
		return nil
	}
	return append([]UnitID(nil), s.ids...)
}

// Len returns the number of vehicles in the yard.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return s.size
}
