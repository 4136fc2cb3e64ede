package worker

import (
	"math/rand"
	"strconv"
	"time"

	"f1race/internal/config"
	"f1race/internal/eventbus"
	"f1race/internal/logging"
	"f1race/internal/raceerr"
	"f1race/internal/racestate"
	"f1race/internal/sync2"
)

// crewPollInterval bounds how long WaitForCar blocks before re-checking the
// cooperative stop predicate (spec.md section 4.4, section 5).
const crewPollInterval = 250 * time.Millisecond

// CrewWorker is the consumer side of a team's pit box (spec.md section
// 4.4): it waits for a car to arrive, services it for a randomized
// duration, then signals completion.
type CrewWorker struct {
	Team  string
	Box   *sync2.PitBox
	State *racestate.State
	Cfg   *config.Config
	Log   logging.Sink
	Bus   *eventbus.Bus[racestate.Result]
	Rng   *rand.Rand
}

func (w *CrewWorker) stopped() bool {
	return w.State.IsRaceFinished()
}

// Run is the crew's goroutine entry point. It loops for the whole race,
// servicing one car at a time.
func (w *CrewWorker) Run() {
	for {
		if w.stopped() {
			return
		}
		if !w.Box.WaitForCar(crewPollInterval) {
			continue
		}

		duration := w.Cfg.Scaled(JitterDuration(w.Rng, w.Cfg.PitServiceDurMin, w.Cfg.PitServiceDurMax))
		msg := "pit crew " + w.Team + " begins service"
		w.Log.Event(logging.Race, msg)
		if w.Bus != nil {
			w.Bus.Log(msg)
		}

		slept := time.Duration(0)
		for slept < duration {
			if w.stopped() {
				return
			}
			step := crewPollInterval
			if remaining := duration - slept; remaining < step {
				step = remaining
			}
			time.Sleep(step)
			slept += step
		}

		if err := w.Box.FinishService(); err != nil {
			w.Log.Event(logging.Error, "pit crew "+w.Team+": "+err.Error())
			if raceerr.IsProgramming(err) {
				return
			}
			continue
		}
		compound := w.Box.ChosenCompound()
		w.Log.Event(logging.Race, "pit crew "+w.Team+" releases car, compound "+strconv.Itoa(compound))
	}
}
