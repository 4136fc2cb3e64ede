package sync2

import "sync/atomic"

// PitLane is the paired fair-semaphore admission of spec.md section 4.3:
// independent entry/exit semaphores plus an atomic occupancy counter, so a
// car leaving can proceed even while the entrance is saturated.
type PitLane struct {
	Entry *FairSemaphore
	Exit  *FairSemaphore

	inLane atomic.Int32
}

// NewPitLane builds a pit lane with entry/exit capacity (spec.md default:
// 3 permits each, matching pit-entry/pit-exit segment capacity).
func NewPitLane(capacity int) *PitLane {
	return &PitLane{
		Entry: NewFairSemaphore(capacity),
		Exit:  NewFairSemaphore(capacity),
	}
}

// EnterLane acquires an entry permit and marks the car as resident in the
// lane. Call ReleaseEntry once the pit-entry segment has been traversed.
func (p *PitLane) EnterLane(id int, stopped func() bool) bool {
	if !p.Entry.Acquire(id, stopped) {
		return false
	}
	p.inLane.Add(1)
	return true
}

// ReleaseEntry releases the entry permit after the pit-entry segment has
// been traversed (spec.md section 4.3 sequence).
func (p *PitLane) ReleaseEntry(id int) error {
	return p.Entry.Release(id)
}

// LeaveLane acquires an exit permit so the car may traverse the pit-exit
// segment.
func (p *PitLane) LeaveLane(id int, stopped func() bool) bool {
	return p.Exit.Acquire(id, stopped)
}

// ReleaseExit releases the exit permit and marks the car as no longer
// resident in the lane, after the pit-exit segment has been traversed.
func (p *PitLane) ReleaseExit(id int) error {
	if err := p.Exit.Release(id); err != nil {
		return err
	}
	p.inLane.Add(-1)
	return nil
}

// CarsInLane is the atomic counter of cars currently in the pit lane.
func (p *PitLane) CarsInLane() int {
	return int(p.inLane.Load())
}

// Interrupt wakes every waiter on both semaphores.
func (p *PitLane) Interrupt() {
	p.Entry.Interrupt()
	p.Exit.Interrupt()
}
