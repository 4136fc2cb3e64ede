package worker

import (
	"testing"
	"time"

	"f1race/internal/config"
	"f1race/internal/model"
	"f1race/internal/racestate"
)

// TestStrategistRequestsMandatoryStopInWindow exercises spec.md section
// 4.7: a car not yet pitted, inside the mandatory window, gets a pit
// request once tyre wear turns opportunistic.
func TestStrategistRequestsMandatoryStopInWindow(t *testing.T) {
	track := buildTestTrack()
	cars := buildTestCars(2)
	team := &model.Team{Name: "team", Cars: [2]*model.Car{cars[0], cars[1]}}
	state := racestate.NewState(track, []*model.Team{team}, cars, 20)
	cfg := config.Default()

	cars[0].SetCurrentLap(cfg.MandatoryPitEarliest + 1)
	cars[0].Tyres.Wear = cfg.OpportunisticTyreWear

	strat := &StrategistWorker{Team: team, State: state, Cfg: cfg}
	strat.evaluate(cars[0])

	if !cars[0].PitRequestPending() {
		t.Fatal("expected a pit request inside the mandatory window once wear turns opportunistic")
	}
}

// TestStrategistSkipsWindowWithoutWearOrDeadline is spec.md section 8
// property 10: a car inside the mandatory window with low tyre wear and
// laps still remaining before the hard deadline is left alone.
func TestStrategistSkipsWindowWithoutWearOrDeadline(t *testing.T) {
	track := buildTestTrack()
	cars := buildTestCars(2)
	team := &model.Team{Name: "team", Cars: [2]*model.Car{cars[0], cars[1]}}
	state := racestate.NewState(track, []*model.Team{team}, cars, 30)
	cfg := config.Default()

	cars[0].SetCurrentLap(24)
	cars[0].Tyres.Wear = cfg.OpportunisticTyreWear - 1

	strat := &StrategistWorker{Team: team, State: state, Cfg: cfg}
	strat.evaluate(cars[0])

	if cars[0].PitRequestPending() {
		t.Fatal("expected no pit request: inside window but below wear and deadline thresholds")
	}
}

// TestStrategistRequestsOnCriticalWear exercises the critical-wear
// override: a car outside the mandatory window still gets sent in once
// wear crosses the threshold.
func TestStrategistRequestsOnCriticalWear(t *testing.T) {
	track := buildTestTrack()
	cars := buildTestCars(2)
	team := &model.Team{Name: "team", Cars: [2]*model.Car{cars[0], cars[1]}}
	state := racestate.NewState(track, []*model.Team{team}, cars, 20)
	cfg := config.Default()

	cars[0].SetCurrentLap(2)
	cars[0].Tyres.Wear = cfg.CriticalTyreWear + 1

	strat := &StrategistWorker{Team: team, State: state, Cfg: cfg}
	strat.evaluate(cars[0])

	if !cars[0].PitRequestPending() {
		t.Fatal("expected a pit request on critical tyre wear")
	}
}

// TestStrategistHardDeadlineGatedOnWindow ensures a short race (where
// totalLaps-MandatoryPitLapsBeforeEnd falls before MandatoryPitEarliest)
// does not fire the hard deadline before the window has even opened.
func TestStrategistHardDeadlineGatedOnWindow(t *testing.T) {
	track := buildTestTrack()
	cars := buildTestCars(2)
	team := &model.Team{Name: "team", Cars: [2]*model.Car{cars[0], cars[1]}}
	state := racestate.NewState(track, []*model.Team{team}, cars, 10)
	cfg := config.Default()

	cars[0].SetCurrentLap(5)

	strat := &StrategistWorker{Team: team, State: state, Cfg: cfg}
	strat.evaluate(cars[0])

	if cars[0].PitRequestPending() {
		t.Fatal("expected no pit request: remaining laps <= late bound but lap is before the window opens")
	}
}

// TestStrategistSkipsCarWithPendingRequest ensures a second request is
// never queued while one is already pending.
func TestStrategistSkipsCarWithPendingRequest(t *testing.T) {
	track := buildTestTrack()
	cars := buildTestCars(2)
	team := &model.Team{Name: "team", Cars: [2]*model.Car{cars[0], cars[1]}}
	state := racestate.NewState(track, []*model.Team{team}, cars, 20)
	cfg := config.Default()

	cars[0].RequestPit(model.Hard)
	cars[0].SetCurrentLap(cfg.MandatoryPitEarliest + 1)
	cars[0].Tyres.Wear = cfg.CriticalTyreWear + 1

	strat := &StrategistWorker{Team: team, State: state, Cfg: cfg}
	strat.evaluate(cars[0])

	compound, _ := cars[0].TakePitRequest()
	if compound != model.Hard {
		t.Fatalf("compound = %v, want Hard (unchanged, not re-requested)", compound)
	}
	if cars[0].PitRequestPending() {
		t.Fatal("expected exactly one pending request to have been consumed")
	}

	time.Sleep(time.Millisecond)
}
