// Package director implements the race director of spec.md section 4.6:
// the ready-quorum wait, five-light start sequence, jittered release,
// race supervision loop, settling period and final-results compilation.
package director

import (
	"math/rand"
	"sort"
	"time"

	"f1race/internal/config"
	"f1race/internal/eventbus"
	"f1race/internal/model"
	"f1race/internal/racestate"
	"f1race/internal/sync2"
	"f1race/internal/worker"
)

// startLights is the fixed five-light sequence of spec.md section 4.6.
const startLights = 5

// supervisionPollInterval is how often the director checks for the first
// finisher and for an externally raised abort (spec.md section 4.6).
const supervisionPollInterval = 50 * time.Millisecond

// Director owns the start sequence and end-of-race bookkeeping for one
// race. It does not own the cars, teams or track; those live in State.
type Director struct {
	State     *racestate.State
	Admission *worker.Admission
	Latch     *sync2.StartLatch
	Cfg       *config.Config
	Bus       *eventbus.Bus[racestate.Result]
	Rng       *rand.Rand

	ready    chan int
	readySet map[int]bool

	paused chan struct{}
}

// New builds a director for the given race state. The ready channel is
// sized to the field, the number of cars in state expected to report
// ready.
func New(state *racestate.State, admission *worker.Admission, latch *sync2.StartLatch, cfg *config.Config, bus *eventbus.Bus[racestate.Result], rng *rand.Rand) *Director {
	field := len(state.Cars)
	return &Director{
		State:     state,
		Admission: admission,
		Latch:     latch,
		Cfg:       cfg,
		Bus:       bus,
		Rng:       rng,
		ready:     make(chan int, field),
		readySet:  make(map[int]bool, field),
		paused:    make(chan struct{}, 1),
	}
}

// ReadyChan is handed to every CarWorker as its Ready channel.
func (d *Director) ReadyChan() chan<- int { return d.ready }

// RunStartSequence waits for the ready quorum, then runs the five-light
// sequence and a jittered release, exactly as spec.md section 4.6
// describes it. It returns once the latch has been released.
func (d *Director) RunStartSequence() {
	d.State.SetPhase(racestate.StartPhase)
	field := len(d.State.Cars)

	deadline := time.After(d.Cfg.Scaled(5 * time.Second))
waitQuorum:
	for {
		select {
		case n := <-d.ready:
			d.readySet[n] = true
			if worker.ReadyQuorum(len(d.readySet), field, d.Cfg.StartQuorumFraction) {
				break waitQuorum
			}
		case <-deadline:
			break waitQuorum
		}
	}

	for light := 1; light <= startLights; light++ {
		if d.Bus != nil {
			d.Bus.StartLight(light)
		}
		time.Sleep(d.Cfg.Scaled(d.Cfg.StartLightInterval))
	}

	jitter := worker.JitterDuration(d.Rng, d.Cfg.StartReleaseJitterMin, d.Cfg.StartReleaseJitterMax)
	time.Sleep(d.Cfg.Scaled(jitter))

	d.State.MarkStarted(time.Now())
	d.Latch.Release()
	if d.Bus != nil {
		d.Bus.StartReleased()
	}
}

// Supervise polls the live ordering until the first car finishes, then
// runs the settling period of spec.md section 4.6 ("once the leader
// finishes, give the field a bounded settling period before the race is
// called") and raises the race-wide finished flag, waking every blocked
// primitive so trailing workers unwind promptly.
func (d *Director) Supervise() {
	ticker := time.NewTicker(supervisionPollInterval)
	defer ticker.Stop()

	for range ticker.C {
		if d.State.Phase() == racestate.Aborted {
			d.raiseFinished()
			return
		}
		for _, c := range d.State.LiveOrdering() {
			if c.IsFinished() {
				d.State.SetLeaderFinished(c.Number)
			}
		}
		if d.State.LeaderFinished() != 0 {
			break
		}
	}

	time.Sleep(d.Cfg.Scaled(d.Cfg.SettlingPeriod))
	d.raiseFinished()
}

func (d *Director) raiseFinished() {
	d.State.RaiseFinished()
	d.State.Resume()
	d.State.SetPhase(racestate.Finished)
	d.Admission.Interrupt()
	d.Latch.Release()
	results := CompileResults(d.State)
	d.State.SetResults(results)
	if d.Bus != nil {
		d.Bus.RaceFinished(results)
	}
}

// Abort marks the race aborted, for the controller's stop_race operation
// (spec.md section 4.6's abort path). Supervise observes it on its next
// poll and raises the race-wide finished flag without a settling period.
func (d *Director) Abort() {
	d.State.SetPhase(racestate.Aborted)
}

// CompileResults builds the final classification, sorted by completed
// laps descending then accumulated time ascending, with gaps formatted
// relative to the leader the way the original Java Rennergebnis does
// (spec.md section 12): a plain duration gap for same-lap finishers,
// "laps behind" otherwise.
func CompileResults(state *racestate.State) []racestate.Result {
	cars := append([]*model.Car(nil), state.Cars...)
	sort.SliceStable(cars, func(i, j int) bool {
		a, b := cars[i], cars[j]
		if a.CompletedLaps() != b.CompletedLaps() {
			return a.CompletedLaps() > b.CompletedLaps()
		}
		return a.AccumulatedTime < b.AccumulatedTime
	})

	out := make([]racestate.Result, 0, len(cars))
	var leaderLaps int
	var leaderTime time.Duration
	for i, c := range cars {
		if i == 0 {
			leaderLaps = c.CompletedLaps()
			leaderTime = c.AccumulatedTime
		}
		r := racestate.Result{
			Position:  i + 1,
			CarNumber: c.Number,
			Driver:    c.Driver.Name,
			Team:      c.Team,
			TotalTime: c.AccumulatedTime,
			BestLap:   c.BestLapTime,
			PitStops:  c.PitStops,
		}
		if i == 0 {
			r.GapToLeader = 0
		} else if c.CompletedLaps() == leaderLaps {
			r.GapToLeader = c.AccumulatedTime - leaderTime
		} else {
			r.LapsBehind = leaderLaps - c.CompletedLaps()
		}
		out = append(out, r)
	}
	return out
}
