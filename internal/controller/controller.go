// Package controller is the single entry point a view (console, websocket
// or Telegram) drives: initialise, start_race, pause_race, resume_race,
// stop_race, set_simulation_speed and set_lap_count from spec.md section
// 6's Core/View contract. It is the wiring root that builds the
// admission primitives, race state, arbiter, start latch and every
// worker goroutine, and owns the shutdown fan-out, the way the teacher's
// main.go builds and wires its bot, webserver and notification manager.
package controller

import (
	"fmt"
	"math/rand"
	"sync"

	"f1race/internal/config"
	"f1race/internal/director"
	"f1race/internal/eventbus"
	"f1race/internal/logging"
	"f1race/internal/model"
	"f1race/internal/overtake"
	"f1race/internal/racestate"
	"f1race/internal/roster"
	"f1race/internal/sync2"
	"f1race/internal/worker"
)

const pitLaneCapacity = 3

// Controller owns one race's full set of live objects. It is safe for
// one goroutine to drive through its exported methods; spec.md section
// 6 treats the view as a single caller, not a concurrent one.
type Controller struct {
	cfg    *config.Config
	log    logging.Sink
	roster *roster.Manager
	seed   int64

	mu        sync.Mutex
	State     *racestate.State
	admission *worker.Admission
	latch     *sync2.StartLatch
	arbiter   *overtake.Arbiter
	stats     *overtake.Stats
	director  *director.Director
	bus       *eventbus.Bus[racestate.Result]
	wg        sync.WaitGroup

	// trackName/track/teams/cars are the previous race's loaded grid, kept
	// so a re-initialise with the same track name can reuse it via
	// State.Reset instead of round-tripping the roster store again.
	trackName string
	track     *model.Track
	teams     []*model.Team
	cars      []*model.Car
}

// New builds an uninitialised controller; Initialise must be called
// before StartRace.
func New(cfg *config.Config, log logging.Sink, rosterMgr *roster.Manager, seed int64) *Controller {
	return &Controller{cfg: cfg, log: log, roster: rosterMgr, seed: seed}
}

// Bus exposes the event stream for a view to subscribe to.
func (c *Controller) Bus() *eventbus.Bus[racestate.Result] { return c.bus }

// Initialise implements spec.md section 6's initialise(trackName,
// totalLaps). Re-initialising with the same track name as the previous
// race reuses the already-loaded grid and resets it to the starting line
// (spec.md section 12's reset-for-new-race supplement) instead of
// round-tripping the roster store again; any other track name loads a
// fresh grid. Either way it builds a fresh race state and every admission
// primitive, and starts every car, crew and strategist worker. Car workers
// park at the start latch; crew and strategist workers start their
// polling loops straight away.
func (c *Controller) Initialise(trackName string, totalLaps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Previous race's worker goroutines must have already exited
	// (observed via IsRaceFinished/Abort) before their cars are reused.
	c.wg.Wait()

	var track *model.Track
	var teams []*model.Team
	var cars []*model.Car

	if c.State != nil && c.trackName == trackName {
		track = c.track
		teams = c.teams
		cars = c.cars
		c.State.SetTotalLaps(totalLaps)
		c.State.Reset()
	} else {
		var err error
		track, err = c.roster.LoadTrack(trackName)
		if err != nil {
			return fmt.Errorf("controller: %w", err)
		}
		teams, err = c.roster.LoadTeams(track)
		if err != nil {
			return fmt.Errorf("controller: %w", err)
		}
		for _, t := range teams {
			for _, car := range t.Cars {
				cars = append(cars, car)
			}
		}
		c.State = racestate.NewState(track, teams, cars, totalLaps)
	}

	c.trackName = trackName
	c.track = track
	c.teams = teams
	c.cars = cars

	c.admission = worker.NewAdmission(track, teams, pitLaneCapacity)
	c.latch = sync2.NewStartLatch()
	c.stats = &overtake.Stats{}
	c.arbiter = overtake.NewArbiter(c.stats, c.seed)
	c.bus = eventbus.New[racestate.Result]()
	c.director = director.New(c.State, c.admission, c.latch, c.cfg, c.bus, rand.New(rand.NewSource(c.seed)))

	ready := c.director.ReadyChan()
	for _, car := range cars {
		cw := &worker.CarWorker{
			Car:       car,
			Track:     track,
			Admission: c.admission,
			State:     c.State,
			Arbiter:   c.arbiter,
			Latch:     c.latch,
			Cfg:       c.cfg,
			Log:       c.log,
			Bus:       c.bus,
			Ready:     ready,
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			cw.Run()
		}()
	}
	for _, t := range teams {
		crew := &worker.CrewWorker{
			Team:  t.Name,
			Box:   c.admission.Boxes[t.Name],
			State: c.State,
			Cfg:   c.cfg,
			Log:   c.log,
			Bus:   c.bus,
			Rng:   rand.New(rand.NewSource(c.seed + int64(len(t.Name)))),
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			crew.Run()
		}()

		strat := &worker.StrategistWorker{Team: t, State: c.State, Cfg: c.cfg}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			strat.Run()
		}()
	}

	return nil
}

// StartRace implements spec.md section 4.6: runs the ready-quorum wait
// and five-light release sequence, then hands control to the
// supervision loop that watches for the first finisher. Both run in
// their own goroutine so StartRace returns immediately to the caller.
func (c *Controller) StartRace() {
	c.mu.Lock()
	d := c.director
	c.mu.Unlock()
	if d == nil {
		return
	}

	go func() {
		d.RunStartSequence()
		d.Supervise()
	}()
}

// PauseRace implements spec.md section 6's pause_race: every car worker
// blocks at its next sub-step boundary until ResumeRace is called; crew
// and strategist workers keep running. A
// no-op if called before Initialise has ever succeeded.
func (c *Controller) PauseRace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != nil {
		c.State.Pause()
	}
}

// ResumeRace implements resume_race. A no-op if called before Initialise
// has ever succeeded.
func (c *Controller) ResumeRace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != nil {
		c.State.Resume()
	}
}

// StopRace implements stop_race: it marks the race aborted, with no
// settling period. The director's supervision loop observes the abort on
// its next poll and then wakes every blocked primitive so workers unwind
// promptly. A no-op if called before Initialise has ever succeeded.
func (c *Controller) StopRace() {
	c.mu.Lock()
	d := c.director
	c.mu.Unlock()
	if d == nil {
		return
	}
	d.Abort()
}

// SetSimulationSpeed implements set_simulation_speed: updates the shared
// multiplier every worker's Cfg.Scaled call reads on its next sleep.
func (c *Controller) SetSimulationSpeed(factor float64) {
	c.cfg.SetSimSpeed(factor)
}

// SetLapCount implements set_lap_count: changes the total-laps target
// for the next race start. Car workers read the target once, when the
// start latch releases, so a change made after the start does not move
// their finish; the strategists do see it on their next tick.
func (c *Controller) SetLapCount(totalLaps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != nil {
		c.State.SetTotalLaps(totalLaps)
	}
}

// Wait blocks until every worker goroutine for the current race has
// returned, for a clean process shutdown.
func (c *Controller) Wait() {
	c.wg.Wait()
}
