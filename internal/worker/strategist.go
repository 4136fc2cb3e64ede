package worker

import (
	"time"

	"f1race/internal/config"
	"f1race/internal/model"
	"f1race/internal/racestate"
)

// StrategistWorker polls one team's two cars on an interval and decides
// when each should pit, implementing spec.md section 4.7: a mandatory
// stop somewhere in [MandatoryPitEarliest, totalLaps-MandatoryPitLapsBeforeEnd],
// brought forward immediately if tyre wear crosses CriticalTyreWear.
type StrategistWorker struct {
	Team  *model.Team
	State *racestate.State
	Cfg   *config.Config
}

func (w *StrategistWorker) stopped() bool {
	return w.State.IsRaceFinished()
}

// Run is the strategist's goroutine entry point; it polls for the whole
// race at Cfg.StrategistInterval (scaled by SimSpeed).
func (w *StrategistWorker) Run() {
	for {
		if w.stopped() {
			return
		}
		for _, car := range w.Team.Cars {
			w.evaluate(car)
		}
		time.Sleep(w.Cfg.Scaled(w.Cfg.StrategistInterval))
	}
}

// evaluate decides whether car should be sent in for a stop this tick,
// following the original RennstallThread.pruefeStrategieFuerAuto: inside
// the mandatory window a stop is requested only once the hard deadline
// (remaining laps <= MandatoryPitLapsBeforeEnd) is reached or tyre wear
// turns opportunistic (>= OpportunisticTyreWear); merely being inside the
// window is not by itself a reason to pit. A critically worn car is
// pulled in immediately regardless of the window, but not within the
// last two laps, where an unneeded stop can only cost time.
func (w *StrategistWorker) evaluate(car *model.Car) {
	if car.IsFinished() || car.Stopped() {
		return
	}
	if car.PitRequestPending() {
		return
	}

	totalLaps := w.State.TotalLaps()
	lap := car.CurrentLap()
	remaining := totalLaps - lap
	if remaining < 0 {
		remaining = 0
	}

	inMandatoryWindow := lap >= w.Cfg.MandatoryPitEarliest && lap <= totalLaps-w.Cfg.MandatoryPitLapsBeforeEnd
	hardDeadline := inMandatoryWindow && remaining <= w.Cfg.MandatoryPitLapsBeforeEnd
	opportunistic := inMandatoryWindow && car.Tyres.Wear >= w.Cfg.OpportunisticTyreWear
	critical := car.Tyres.Wear >= w.Cfg.CriticalTyreWear && remaining > 2

	shouldPit := critical ||
		(!car.MandatoryPitDone && (hardDeadline || opportunistic))
	if !shouldPit {
		return
	}

	compound := model.CompoundForRemainingLaps(remaining)
	car.RequestPit(compound)
}
