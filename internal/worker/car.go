package worker

import (
	"math/rand"
	"strconv"
	"time"

	"f1race/internal/config"
	"f1race/internal/eventbus"
	"f1race/internal/logging"
	"f1race/internal/model"
	"f1race/internal/overtake"
	"f1race/internal/racestate"
	"f1race/internal/sync2"
)

// CarWorker drives one car around the circuit, implementing the state
// machine of spec.md section 4.5.
type CarWorker struct {
	Car       *model.Car
	Track     *model.Track
	Admission *Admission
	State     *racestate.State
	Arbiter   *overtake.Arbiter
	Latch     *sync2.StartLatch
	Cfg       *config.Config
	Log       logging.Sink
	Bus       *eventbus.Bus[racestate.Result]

	// Ready is signalled once when the worker reaches the grid and is
	// about to await the start latch, for the director's quorum check
	// (spec.md section 4.6).
	Ready chan<- int
}

// stopped reports whether this worker should unwind at its next safe
// point: either its own local stop flag or the race-wide finished flag
// (spec.md section 5).
func (w *CarWorker) stopped() bool {
	return w.Car.Stopped() || w.State.IsRaceFinished()
}

// Run is the worker's goroutine entry point.
func (w *CarWorker) Run() {
	if w.Ready != nil {
		w.Ready <- w.Car.Number
	}

	w.Latch.AwaitRelease()
	if w.stopped() {
		return
	}

	w.Car.SetStatus(model.Running)
	w.Car.SetCurrentLap(1)
	w.Car.LapStartTime = time.Now()

	idx := 0
	totalLaps := w.State.TotalLaps()

	for {
		if w.stopped() {
			w.Car.SetStatus(model.Retired)
			return
		}

		seg := w.Track.Main[idx]
		if !w.traverseSegment(seg) {
			return
		}
		if w.stopped() {
			return
		}

		wraps := w.Track.NextMainIndex(idx) == 0

		if idx == w.Track.PitEntryBranchIndex && w.Car.PitRequestPending() {
			if !w.pitDetour() {
				return
			}
			if wraps {
				w.closeLap()
				if w.Car.CurrentLap() > totalLaps {
					w.finish()
					return
				}
			}
			idx = w.Track.PitRejoinIndex
			continue
		}

		if wraps {
			w.closeLap()
			if w.Car.CurrentLap() > totalLaps {
				w.finish()
				return
			}
		}
		idx = w.Track.NextMainIndex(idx)
	}
}

// traverseSegment gates admission to seg, then subdivides its traversal
// into SegmentSubSteps sleeps, publishing progress after each (spec.md
// section 4.5). It returns false if the worker was shut down mid-segment.
func (w *CarWorker) traverseSegment(seg model.Segment) bool {
	gated := seg.Kind == model.TightTurn || seg.Kind == model.Chicane
	if gated {
		w.Car.SetStatus(model.WaitingForSegment)
	}
	if !w.Admission.Enter(seg, w.Car.Number, w.stopped) {
		return false
	}
	if gated {
		w.Car.SetStatus(model.InCritical)
	}
	defer func() {
		if err := w.Admission.Leave(seg, w.Car.Number); err != nil {
			w.Log.Event(logging.Error, "car %d: %s", w.Car.Number, err.Error())
		}
		if gated {
			w.Car.SetStatus(model.Running)
		}
	}()

	w.Car.SetSegmentID(seg.ID)
	w.Car.SetProgressInSegment(0)

	steps := w.Cfg.SegmentSubSteps
	if steps < 1 {
		steps = 1
	}
	stepBase := seg.BaseTraversal / time.Duration(steps)
	speedFactor := w.Car.Tyres.BaseSpeedFactor()

	for step := 1; step <= steps; step++ {
		if w.stopped() {
			return false
		}
		w.State.WaitWhilePaused(w.stopped)
		if w.stopped() {
			return false
		}
		sleepFor := w.Cfg.Scaled(time.Duration(float64(stepBase) / speedFactor))
		time.Sleep(sleepFor)
		w.Car.SetProgressInSegment(float64(step) / float64(steps))

		if seg.OvertakingAllowed && step == steps/2 {
			w.tryOvertake(seg)
		}
	}

	if w.Track.TotalLength() > 0 {
		w.Car.Tyres.WearAfterLapFraction(seg.Length / w.Track.TotalLength())
	}
	return true
}

// tryOvertake implements spec.md section 4.9: find a car ahead in the
// same segment within the gap threshold, and roll an attempt.
func (w *CarWorker) tryOvertake(seg model.Segment) {
	var defender *model.Car
	myProgress := w.Car.ProgressInSegment()
	bestProgress := 2.0

	for _, c := range w.State.Cars {
		if c.Number == w.Car.Number {
			continue
		}
		if c.SegmentID() != seg.ID {
			continue
		}
		prog := c.ProgressInSegment()
		if prog > myProgress && prog < bestProgress {
			defender = c
			bestProgress = prog
		}
	}
	if defender == nil {
		return
	}

	gap := estimateGap(seg, defender.ProgressInSegment(), myProgress)
	if gap >= w.Cfg.OvertakeGapThreshold {
		return
	}

	w.Car.SetStatus(model.InOvertakeZone)
	attempt := overtake.Attempt{
		OvertakerTyreWear:    w.Car.Tyres.Wear,
		DefenderTyreWear:     defender.Tyres.Wear,
		OvertakerSpeedFactor: w.Car.Tyres.BaseSpeedFactor(),
		DefenderSpeedFactor:  defender.Tyres.BaseSpeedFactor(),
		DRSZone:              seg.Kind == model.DRSZone,
		Gap:                  gap,
		OvertakerSkill:       w.Car.Driver.Skill,
		DefenderSkill:        defender.Driver.Skill,
	}
	success, newProgress := w.Arbiter.Attempt(attempt, defender.ProgressInSegment(), w.Cfg.OvertakeProgressBonus)
	if success {
		w.Car.SetProgressInSegment(newProgress)
		msg := "car " + strconv.Itoa(w.Car.Number) + " overtakes car " + strconv.Itoa(defender.Number)
		w.Log.Event(logging.Race, msg)
		if w.Bus != nil {
			w.Bus.Log(msg)
			w.Bus.StandingsChanged()
		}
	}
	w.Car.SetStatus(model.Running)
}

// estimateGap turns the progress delta between two cars in the same
// segment into a time gap, scaled by the segment's base traversal time.
func estimateGap(seg model.Segment, aheadProgress, behindProgress float64) time.Duration {
	delta := aheadProgress - behindProgress
	if delta < 0 {
		delta = 0
	}
	return time.Duration(delta * float64(seg.BaseTraversal))
}

// pitDetour implements the car's side of the pit-lane sequence (spec.md
// section 4.3): acquire entry -> traverse pit-entry -> release entry ->
// in-box service (section 4.4) -> acquire exit -> traverse pit-exit ->
// release exit.
func (w *CarWorker) pitDetour() bool {
	compound, ok := w.Car.TakePitRequest()
	if !ok {
		return true
	}

	w.Car.SetStatus(model.EnteringPit)
	if !w.Admission.PitLane.EnterLane(w.Car.Number, w.stopped) {
		return false
	}
	if !w.traverseSegment(w.Track.PitEntry) {
		return false
	}
	if err := w.Admission.PitLane.ReleaseEntry(w.Car.Number); err != nil {
		w.Log.Event(logging.Error, "car %d: %s", w.Car.Number, err.Error())
		return false
	}
	if w.stopped() {
		return false
	}

	box := w.Admission.Boxes[w.Car.Team]
	w.Car.SetStatus(model.InBox)
	if !box.PerformStop(w.Car.Number, int(compound), w.stopped) {
		return false
	}

	w.Car.Tyres = model.Fresh(compound)
	w.Car.PitStops++
	// Any completed stop satisfies the "pit exactly once" mandatory rule,
	// whichever trigger (mandatory window or critical wear) caused it.
	w.Car.MandatoryPitDone = true

	msg := "car " + strconv.Itoa(w.Car.Number) + " completes a pit stop, fitting " + compound.String() + " tyres"
	w.Log.Event(logging.Race, msg)
	if w.Bus != nil {
		w.Bus.Log(msg)
	}

	w.Car.SetStatus(model.LeavingPit)
	if !w.traverseSegment(w.Track.PitLane) {
		return false
	}
	if !w.Admission.PitLane.LeaveLane(w.Car.Number, w.stopped) {
		return false
	}
	if !w.traverseSegment(w.Track.PitExit) {
		return false
	}
	if err := w.Admission.PitLane.ReleaseExit(w.Car.Number); err != nil {
		w.Log.Event(logging.Error, "car %d: %s", w.Car.Number, err.Error())
		return false
	}
	w.Car.SetStatus(model.Running)
	return true
}

// closeLap publishes a lap record and advances the lap counter (spec.md
// section 4.5: "if at the last main segment, wrap to segment 0 and close
// the lap").
func (w *CarWorker) closeLap() {
	now := time.Now()
	lapDur := now.Sub(w.Car.LapStartTime)
	w.Car.LastLapTime = lapDur
	if w.Car.BestLapTime == 0 || lapDur < w.Car.BestLapTime {
		w.Car.BestLapTime = lapDur
	}
	w.Car.AccumulatedTime += lapDur
	w.Car.IncCompletedLaps()

	w.State.AppendLap(racestate.LapRecord{
		CarNumber: w.Car.Number,
		Lap:       w.Car.CurrentLap(),
		Duration:  lapDur,
		At:        now,
	})
	if w.Bus != nil {
		w.Bus.StandingsChanged()
	}

	w.Car.SetCurrentLap(w.Car.CurrentLap() + 1)
	w.Car.LapStartTime = now
}

func (w *CarWorker) finish() {
	w.Car.SetStatus(model.Finished)
	w.Car.SetFinished()
	msg := "car " + strconv.Itoa(w.Car.Number) + " takes the chequered flag"
	w.Log.Event(logging.Race, msg)
	if w.Bus != nil {
		w.Bus.Log(msg)
		w.Bus.StandingsChanged()
	}
}


// ReadyQuorum reports whether count of reported-ready cars meets the
// configured quorum fraction of field (spec.md section 4.6 and section 9:
// "Ready quorum before start").
func ReadyQuorum(ready, field int, fraction float64) bool {
	if field == 0 {
		return true
	}
	return float64(ready) >= fraction*float64(field)
}

// JitterDuration draws a uniform random duration in [min, max), used by
// the director's start-release jitter (spec.md section 4.6).
func JitterDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := max - min
	return min + time.Duration(rng.Int63n(int64(span)))
}
