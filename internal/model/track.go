// Package model implements the race data model from spec.md section 3:
// track segments, cars, tyres and teams (the pit box is sync2.PitBox).
// Segment kind dispatch
// follows spec.md section 9's advice to use a tagged variant plus a
// minimal enter/leave contract rather than a class hierarchy.
package model

import "time"

// SegmentKind tags a track segment's admission behaviour.
type SegmentKind int

const (
	StartFinish SegmentKind = iota
	Straight
	DRSZone
	NormalTurn
	TightTurn
	Chicane
	PitEntry
	PitLaneSegment
	PitExit
)

func (k SegmentKind) String() string {
	switch k {
	case StartFinish:
		return "start/finish"
	case Straight:
		return "straight"
	case DRSZone:
		return "drs-zone"
	case NormalTurn:
		return "normal-turn"
	case TightTurn:
		return "tight-turn"
	case Chicane:
		return "chicane"
	case PitEntry:
		return "pit-entry"
	case PitLaneSegment:
		return "pit-lane"
	case PitExit:
		return "pit-exit"
	default:
		return "unknown"
	}
}

// DefaultCapacity returns the per-kind capacity table from spec.md
// section 3. A capacity of 0 means unbounded (normal-turn, straight,
// DRS-zone, start/finish, and the pit-lane road segment itself — only the
// per-team pit box, modelled separately, has capacity 1).
func (k SegmentKind) DefaultCapacity() int {
	switch k {
	case TightTurn:
		return 1
	case Chicane:
		return 2
	case PitEntry, PitExit:
		return 3
	default:
		return 0
	}
}

// OvertakingAllowed reports whether the segment kind permits an overtake
// attempt (spec.md section 4.9).
func (k SegmentKind) OvertakingAllowed() bool {
	return k == Straight || k == DRSZone
}

// Segment is immutable once built (spec.md section 3).
type Segment struct {
	ID               int
	Kind             SegmentKind
	Capacity         int
	Length           float64
	OvertakingAllowed bool
	BaseTraversal    time.Duration
}

// NewSegment builds a segment, taking Capacity and OvertakingAllowed from
// Kind's defaults.
func NewSegment(id int, kind SegmentKind, length float64, baseTraversal time.Duration) Segment {
	return Segment{
		ID:                id,
		Kind:              kind,
		Capacity:          kind.DefaultCapacity(),
		Length:            length,
		OvertakingAllowed: kind.OvertakingAllowed(),
		BaseTraversal:     baseTraversal,
	}
}

// Track is the immutable ring of main segments plus the pit-lane detour
// (spec.md section 3: glossary "Pit lane").
type Track struct {
	Main    []Segment // ordered ring, index 0 is start/finish
	PitEntry Segment
	PitLane  Segment
	PitExit  Segment
	// PitEntryBranchIndex is the index in Main after which a car that has
	// requested a pit stop diverts into the pit lane instead of
	// continuing on Main.
	PitEntryBranchIndex int
	// PitRejoinIndex is the Main index a car resumes at after PitExit.
	PitRejoinIndex int
}

// SegmentByID looks up a segment by its global id across both the main
// ring and the pit-lane detour. Unknown ids are a semantic fault per
// spec.md section 7 and are reported via the bool return; callers treat
// false as fatal.
func (t *Track) SegmentByID(id int) (Segment, bool) {
	for _, s := range t.Main {
		if s.ID == id {
			return s, true
		}
	}
	for _, s := range []Segment{t.PitEntry, t.PitLane, t.PitExit} {
		if s.ID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// NextMainIndex returns the index following idx on the main ring, wrapping
// to 0 (spec.md section 4.5: "if at the last main segment, wrap to segment
// 0 and close the lap").
func (t *Track) NextMainIndex(idx int) int {
	if idx+1 >= len(t.Main) {
		return 0
	}
	return idx + 1
}

// TotalLength sums the main ring's segment lengths, used to turn a
// segment's length into a fraction of a lap's worth of tyre wear.
func (t *Track) TotalLength() float64 {
	var total float64
	for _, s := range t.Main {
		total += s.Length
	}
	return total
}
