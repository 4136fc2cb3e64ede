// Package worker implements the car, pit-crew and strategist workers of
// spec.md sections 4.5-4.7.
package worker

import (
	"f1race/internal/model"
	"f1race/internal/sync2"
)

// Admission wires every track segment that gates entry to its concurrency
// primitive: a Monitor for tight turns, a FairSemaphore for chicanes, the
// paired pit-lane semaphores, and one PitBox per team (spec.md section
// 4.1-4.4). Built once per race by the controller and shared by
// reference with every car/crew worker.
type Admission struct {
	monitors map[int]*sync2.Monitor
	chicanes map[int]*sync2.FairSemaphore
	PitLane  *sync2.PitLane
	Boxes    map[string]*sync2.PitBox
}

// NewAdmission builds the admission primitives for track, one pit box per
// team, and a pit lane with the given entry/exit permit capacity.
func NewAdmission(track *model.Track, teams []*model.Team, pitLaneCapacity int) *Admission {
	a := &Admission{
		monitors: make(map[int]*sync2.Monitor),
		chicanes: make(map[int]*sync2.FairSemaphore),
		PitLane:  sync2.NewPitLane(pitLaneCapacity),
		Boxes:    make(map[string]*sync2.PitBox),
	}
	for _, seg := range track.Main {
		switch seg.Kind {
		case model.TightTurn:
			a.monitors[seg.ID] = sync2.NewMonitor()
		case model.Chicane:
			a.chicanes[seg.ID] = sync2.NewFairSemaphore(seg.Capacity)
		}
	}
	for _, t := range teams {
		a.Boxes[t.Name] = sync2.NewPitBox()
	}
	return a
}

// Enter admits id to seg, blocking as required by the segment's kind.
// Segments with no gating primitive admit immediately. stopped is
// consulted on every wake for cooperative shutdown (spec.md section 5).
func (a *Admission) Enter(seg model.Segment, id int, stopped func() bool) bool {
	switch seg.Kind {
	case model.TightTurn:
		return a.monitors[seg.ID].Enter(id, stopped)
	case model.Chicane:
		return a.chicanes[seg.ID].Acquire(id, stopped)
	default:
		return true
	}
}

// Leave releases id's hold on seg, if the segment's kind has a gating
// primitive.
func (a *Admission) Leave(seg model.Segment, id int) error {
	switch seg.Kind {
	case model.TightTurn:
		return a.monitors[seg.ID].Leave(id)
	case model.Chicane:
		return a.chicanes[seg.ID].Release(id)
	default:
		return nil
	}
}

// Interrupt wakes every blocked primitive, used by the controller's
// shutdown fan-out when the race-finished flag is raised.
func (a *Admission) Interrupt() {
	for _, m := range a.monitors {
		m.Interrupt()
	}
	for _, s := range a.chicanes {
		s.Interrupt()
	}
	a.PitLane.Interrupt()
	for _, b := range a.Boxes {
		b.Interrupt()
	}
}
