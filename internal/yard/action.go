package yard

type Kind string

const (
	KindMove    Kind = "move"
	KindWait    Kind = "wait"
	KindSplit   Kind = "split"
	KindCombine Kind = "combine"
)

// Action is a closed union: only the variants declared in this package
// implement it. Rules dispatch on it with a type switch.
type Action interface {
	Kind() Kind
	// Unit is the shunting unit the action applies to.
	Unit() UnitID
	isAction()
}

type Move struct {
	Target UnitID
	From   string
	To     string
}

func (Move) Kind() Kind     { return KindMove }
func (m Move) Unit() UnitID { return m.Target }
func (Move) isAction()      {}

type Wait struct {
	Target UnitID
}

func (Wait) Kind() Kind     { return KindWait }
func (w Wait) Unit() UnitID { return w.Target }
func (Wait) isAction()      {}

// SplitParams selects how a Split partitions its unit. Variants are SplitAt
// and SplitGroups.
type SplitParams interface {
	isSplitParams()
}

// SplitAt puts the first Index vehicles in the front group and the rest in
// the rear group.
type SplitAt struct {
	Index int
}

func (SplitAt) isSplitParams() {}

// SplitGroups lists the membership of both resulting groups explicitly.
type SplitGroups struct {
	Front []TrainID
	Rear  []TrainID
}

func (SplitGroups) isSplitParams() {}

// Split divides one unit into two groups in place.
type Split struct {
	Target UnitID
	By     SplitParams
}

func (Split) Kind() Kind     { return KindSplit }
func (s Split) Unit() UnitID { return s.Target }
func (Split) isAction()      {}

// Attachment says which group ends up at the front of a combined unit.
type Attachment string

const (
	// AttachAppend couples Second behind First.
	AttachAppend Attachment = "append"
	// AttachPrepend couples Second in front of First.
	AttachPrepend Attachment = "prepend"
)

// Combine merges First and Second into Target.
// Merged is the declared resulting order; when nil the result is the one
// implied by Attach.
type Combine struct {
	Target UnitID
	First  UnitID
	Second UnitID
	Attach Attachment
	Merged []TrainID
}

func (Combine) Kind() Kind     { return KindCombine }
func (c Combine) Unit() UnitID { return c.Target }
func (Combine) isAction()      {}

// Orientation returns Attach with the empty value resolved to AttachAppend.
func (c Combine) Orientation() Attachment {
	if c.Attach == "" {
		return AttachAppend
	}
	return c.Attach
}
