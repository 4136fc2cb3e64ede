package model

import (
	"sync/atomic"
	"time"
)

// Status is a car's state-machine state (spec.md section 4.5).
type Status int32

const (
	Grid Status = iota
	Running
	WaitingForSegment
	InCritical
	InOvertakeZone
	EnteringPit
	InBox
	LeavingPit
	Finished
	Retired
)

func (s Status) String() string {
	switch s {
	case Grid:
		return "grid"
	case Running:
		return "running"
	case WaitingForSegment:
		return "waiting-for-segment"
	case InCritical:
		return "in-critical"
	case InOvertakeZone:
		return "in-overtake-zone"
	case EnteringPit:
		return "entering-pit"
	case InBox:
		return "in-box"
	case LeavingPit:
		return "leaving-pit"
	case Finished:
		return "finished"
	case Retired:
		return "retired"
	default:
		return "unknown"
	}
}

// Driver identifies a driver by name and skill rating, used by the
// overtake arbiter's driver-skill factor (spec.md section 4.9).
type Driver struct {
	Name  string
	Skill float64 // 0..1, + favours the overtaker
}

// Car is the mutable state consumed by multiple goroutines (spec.md
// section 3). Every field read by another goroutine is either atomic or
// behind an explicit, documented channel: SegmentID, ProgressMilli,
// CurrentLap and Status are atomics used by the live-ordering function
// (section 4.8) and by shutdown checks; PitRequested/PitCompound are the
// strategist's single-writer channel (section 4.7); everything else is
// owned by the car's own worker goroutine and never read concurrently.
type Car struct {
	Number int
	Team   string
	Driver Driver

	// Published fields, read concurrently without locking by the
	// live-ordering function. Staleness between SegmentID and
	// ProgressMilli is bounded and tolerated (spec.md section 4.8).
	status        atomic.Int32
	segmentID     atomic.Int32
	progressMilli atomic.Int32 // progress-in-segment * 1000
	completedLaps atomic.Int32
	currentLap    atomic.Int32
	finished      atomic.Bool
	stop          atomic.Bool

	// Strategist -> car single-writer/single-reader channel.
	pitRequested atomic.Bool
	pitCompound  atomic.Int32

	// Owned exclusively by the car's worker; no concurrent writers.
	Tyres             TyreSet
	PitStops          int
	MandatoryPitDone  bool
	LapStartTime      time.Time
	LastLapTime       time.Duration
	BestLapTime       time.Duration
	AccumulatedTime   time.Duration
}

// NewCar builds a car on the grid with the given starting tyre compound.
func NewCar(number int, team string, driver Driver, startCompound Compound) *Car {
	c := &Car{Number: number, Team: team, Driver: driver, Tyres: Fresh(startCompound)}
	c.status.Store(int32(Grid))
	return c
}

func (c *Car) Status() Status           { return Status(c.status.Load()) }
func (c *Car) SetStatus(s Status)       { c.status.Store(int32(s)) }
func (c *Car) SegmentID() int           { return int(c.segmentID.Load()) }
func (c *Car) SetSegmentID(id int)      { c.segmentID.Store(int32(id)) }
func (c *Car) ProgressInSegment() float64 {
	return float64(c.progressMilli.Load()) / 1000
}
func (c *Car) SetProgressInSegment(p float64) {
	c.progressMilli.Store(int32(p * 1000))
}
func (c *Car) CompletedLaps() int      { return int(c.completedLaps.Load()) }
func (c *Car) IncCompletedLaps()       { c.completedLaps.Add(1) }
func (c *Car) CurrentLap() int         { return int(c.currentLap.Load()) }
func (c *Car) SetCurrentLap(lap int)   { c.currentLap.Store(int32(lap)) }
func (c *Car) IsFinished() bool        { return c.finished.Load() }
func (c *Car) SetFinished()            { c.finished.Store(true) }

// Stop and Stopped implement the per-worker cooperative-shutdown flag from
// spec.md section 5.
func (c *Car) Stop()          { c.stop.Store(true) }
func (c *Car) Stopped() bool  { return c.stop.Load() }

// RequestPit is the strategist's write side of the pit-request channel
// (spec.md section 4.7): single writer, published atomically.
func (c *Car) RequestPit(compound Compound) {
	c.pitCompound.Store(int32(compound))
	c.pitRequested.Store(true)
}

// TakePitRequest is the car worker's read-and-clear side of the channel.
// It returns whether a request was pending and, if so, the requested
// compound.
func (c *Car) TakePitRequest() (Compound, bool) {
	if !c.pitRequested.CompareAndSwap(true, false) {
		return 0, false
	}
	return Compound(c.pitCompound.Load()), true
}

// PitRequestPending reports a pending request without clearing it; used
// by the car worker to decide whether to divert at the pit-entry branch
// without consuming the request before it actually commits to the detour.
func (c *Car) PitRequestPending() bool {
	return c.pitRequested.Load()
}

// ResetForGrid returns the car to its pre-race state for a "new race"
// (spec.md section 3 lifecycle: "reset: all cars to grid, all counters
// cleared"). startSegmentID is the track's start/finish segment id and
// startCompound the tyre compound to begin the reset race on.
func (c *Car) ResetForGrid(startSegmentID int, startCompound Compound) {
	c.status.Store(int32(Grid))
	c.segmentID.Store(int32(startSegmentID))
	c.progressMilli.Store(0)
	c.completedLaps.Store(0)
	c.currentLap.Store(1)
	c.finished.Store(false)
	c.stop.Store(false)
	c.pitRequested.Store(false)
	c.pitCompound.Store(0)

	c.Tyres = Fresh(startCompound)
	c.PitStops = 0
	c.MandatoryPitDone = false
	c.LapStartTime = time.Time{}
	c.LastLapTime = 0
	c.BestLapTime = 0
	c.AccumulatedTime = 0
}
