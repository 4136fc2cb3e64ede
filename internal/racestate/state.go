// Package racestate implements the shared race-state object of spec.md
// section 3 and the live-ordering snapshot of section 4.8.
package racestate

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"f1race/internal/model"
)

// Phase is the race's overall status (spec.md section 3).
type Phase int

const (
	Preparing Phase = iota
	StartPhase
	Running
	Paused
	Aborted
	Finished
)

// LapRecord is one completed-lap entry in the append-only log.
type LapRecord struct {
	CarNumber int
	Lap       int
	Duration  time.Duration
	At        time.Time
}

// Result is one entry of the append-only final-results list, formatted
// the way the original Java Rennergebnis does (spec.md section 12): a
// signed gap-to-leader, "+1 Lap" style for lapped cars.
type Result struct {
	Position     int
	CarNumber    int
	Driver       string
	Team         string
	TotalTime    time.Duration
	BestLap      time.Duration
	PitStops     int
	GapToLeader  time.Duration
	LapsBehind   int
}

// State is the race-wide shared object: immutable references to track,
// teams, cars and boxes, plus mutable status/log/results. Cars, teams,
// boxes and track are owned exclusively by State; every worker holds a
// shared, non-owning reference (spec.md section 3 "Ownership").
type State struct {
	Track *model.Track
	Teams []*model.Team
	Cars  []*model.Car

	mu            sync.Mutex
	phase         Phase
	startedAt     time.Time
	lapLog        []LapRecord
	results       []Result
	totalLaps     int
	leaderFinished int // car number of the first finisher, 0 if none yet

	// raceFinished is the race-wide termination flag of spec.md section
	// 4.6/5: published atomically so every worker can observe it at a
	// safe point without taking the state's mutex.
	raceFinished atomic.Bool

	// paused gates every worker's sub-step loop for the controller's
	// pause_race/resume_race operation (spec.md section 4.6's lifecycle).
	// A mutex-guarded flag plus a broadcast condition variable, the same
	// shape as sync2.StartLatch, since resuming must wake every blocked
	// worker rather than have them poll on a timer.
	pauseMu   sync.Mutex
	pauseCond *sync.Cond
	paused    bool
}

// NewState builds a fresh race state on the grid.
func NewState(track *model.Track, teams []*model.Team, cars []*model.Car, totalLaps int) *State {
	s := &State{
		Track:     track,
		Teams:     teams,
		Cars:      cars,
		phase:     Preparing,
		totalLaps: totalLaps,
	}
	s.pauseCond = sync.NewCond(&s.pauseMu)
	return s
}

func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *State) TotalLaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLaps
}

func (s *State) SetTotalLaps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalLaps = n
}

func (s *State) MarkStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = at
	s.phase = Running
}

// AppendLap appends a completed-lap record; concurrent readers of the log
// tolerate appends (spec.md section 5: "Append-only collections").
func (s *State) AppendLap(r LapRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lapLog = append(s.lapLog, r)
}

// LapLog returns a snapshot copy of the lap log.
func (s *State) LapLog() []LapRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LapRecord, len(s.lapLog))
	copy(out, s.lapLog)
	return out
}

// SetResults replaces the final-results list (written once, by the
// director's compilation step).
func (s *State) SetResults(results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

func (s *State) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// LeaderFinished reports the car number of the first finisher, or 0 if
// none has finished yet.
func (s *State) LeaderFinished() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderFinished
}

// SetLeaderFinished records the first finisher, idempotently (only the
// first call sticks).
func (s *State) SetLeaderFinished(carNumber int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaderFinished == 0 {
		s.leaderFinished = carNumber
	}
}

// RaiseFinished sets the race-wide finished flag. Idempotent: once raised
// it stays raised until Reset.
func (s *State) RaiseFinished() {
	s.raceFinished.Store(true)
}

// IsRaceFinished is polled by every worker at its safe points (spec.md
// section 5).
func (s *State) IsRaceFinished() bool {
	return s.raceFinished.Load()
}

// Pause raises the pause gate; every worker blocked in WaitWhilePaused
// stays blocked until Resume.
func (s *State) Pause() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	s.paused = true
	s.SetPhase(Paused)
}

// Resume clears the pause gate and wakes every worker waiting on it.
func (s *State) Resume() {
	s.pauseMu.Lock()
	s.paused = false
	s.pauseMu.Unlock()
	s.pauseCond.Broadcast()
	s.SetPhase(Running)
}

// WaitWhilePaused blocks the calling worker while the pause gate is
// raised. It re-checks stopped on every wake so a shutdown during a
// pause still unwinds the worker promptly.
func (s *State) WaitWhilePaused(stopped func() bool) {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	for s.paused {
		if stopped != nil && stopped() {
			return
		}
		s.pauseCond.Wait()
	}
}

// Reset returns all cars to the grid and clears counters, reusing the
// same track and roster, for a "new race" (spec.md section 3 lifecycle,
// section 12's RennDaten-reinit supplement, property 6 in section 8).
func (s *State) Reset() {
	s.mu.Lock()
	s.phase = Preparing
	s.lapLog = nil
	s.results = nil
	s.leaderFinished = 0
	s.mu.Unlock()
	s.raceFinished.Store(false)

	startID := s.Track.Main[0].ID
	for _, c := range s.Cars {
		c.ResetForGrid(startID, c.Tyres.Compound)
	}
}

// orderKey is the ordering tuple from spec.md section 4.8: (completed
// laps desc, current segment id desc, progress-in-segment desc).
type orderKey struct {
	car           *model.Car
	completedLaps int
	segmentID     int
	progress      float64
}

// LiveOrdering computes the current leaderboard on demand. It reads each
// car's published fields without locking; the small bounded staleness
// between SegmentID and ProgressInSegment is tolerated per spec.md
// section 4.8. The function is total and side-effect-free: it never
// panics on whatever combination of values it observes.
func (s *State) LiveOrdering() []*model.Car {
	keys := make([]orderKey, 0, len(s.Cars))
	for _, c := range s.Cars {
		keys = append(keys, orderKey{
			car:           c,
			completedLaps: c.CompletedLaps(),
			segmentID:     c.SegmentID(),
			progress:      c.ProgressInSegment(),
		})
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.completedLaps != b.completedLaps {
			return a.completedLaps > b.completedLaps
		}
		if a.segmentID != b.segmentID {
			return a.segmentID > b.segmentID
		}
		return a.progress > b.progress
	})

	out := make([]*model.Car, len(keys))
	for i, k := range keys {
		out[i] = k.car
	}
	return out
}
