package director

import (
	"math/rand"
	"testing"
	"time"

	"f1race/internal/config"
	"f1race/internal/eventbus"
	"f1race/internal/model"
	"f1race/internal/racestate"
	"f1race/internal/sync2"
	"f1race/internal/worker"
)

func buildTrack() *model.Track {
	main := []model.Segment{
		model.NewSegment(0, model.StartFinish, 100, 10*time.Millisecond),
		model.NewSegment(1, model.Straight, 300, 10*time.Millisecond),
	}
	return &model.Track{
		Main:     main,
		PitEntry: model.NewSegment(100, model.PitEntry, 50, 10*time.Millisecond),
		PitLane:  model.NewSegment(101, model.PitLaneSegment, 200, 10*time.Millisecond),
		PitExit:  model.NewSegment(102, model.PitExit, 50, 10*time.Millisecond),
	}
}

func buildCars(n int) []*model.Car {
	cars := make([]*model.Car, n)
	for i := 0; i < n; i++ {
		cars[i] = model.NewCar(i+1, "team", model.Driver{Name: "driver", Skill: 0.5}, model.Medium)
	}
	return cars
}

func fastConfig() *config.Config {
	c := config.Default()
	c.StartLightInterval = time.Millisecond
	c.StartReleaseJitterMin = time.Millisecond
	c.StartReleaseJitterMax = 2 * time.Millisecond
	c.SettlingPeriod = 5 * time.Millisecond
	c.SetSimSpeed(1)
	return c
}

// TestRunStartSequenceReleasesLatch checks that, once the whole field has
// reported ready, RunStartSequence releases the start latch and moves the
// race to Running.
func TestRunStartSequenceReleasesLatch(t *testing.T) {
	track := buildTrack()
	cars := buildCars(4)
	state := racestate.NewState(track, nil, cars, 5)
	admission := worker.NewAdmission(track, nil, 4)
	latch := sync2.NewStartLatch()
	cfg := fastConfig()
	bus := eventbus.New[racestate.Result]()
	d := New(state, admission, latch, cfg, bus, rand.New(rand.NewSource(1)))

	ready := d.ReadyChan()
	for _, c := range cars {
		ready <- c.Number
	}

	d.RunStartSequence()

	if !latch.Released() {
		t.Fatal("expected latch released after RunStartSequence")
	}
	if state.Phase() != racestate.Running {
		t.Fatalf("Phase = %v, want Running", state.Phase())
	}
}

// TestSuperviseRaisesFinishedAfterFirstFinisher exercises spec.md section
// 4.6: once a car is marked finished, Supervise runs the settling period
// and then raises the race-wide finished flag and compiles results.
func TestSuperviseRaisesFinishedAfterFirstFinisher(t *testing.T) {
	track := buildTrack()
	cars := buildCars(3)
	state := racestate.NewState(track, nil, cars, 5)
	admission := worker.NewAdmission(track, nil, 4)
	latch := sync2.NewStartLatch()
	cfg := fastConfig()
	bus := eventbus.New[racestate.Result]()
	d := New(state, admission, latch, cfg, bus, rand.New(rand.NewSource(1)))

	results := bus.SubscribeRaceFinished()

	cars[1].SetCurrentLap(6)
	for _, c := range cars {
		c.IncCompletedLaps()
	}
	cars[1].IncCompletedLaps() // the finisher is a lap ahead of the field
	cars[1].SetFinished()

	done := make(chan struct{})
	go func() {
		d.Supervise()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Supervise did not return in time")
	}

	if !state.IsRaceFinished() {
		t.Fatal("expected race-wide finished flag raised")
	}
	if state.LeaderFinished() != cars[1].Number {
		t.Fatalf("LeaderFinished = %d, want %d", state.LeaderFinished(), cars[1].Number)
	}

	select {
	case r := <-results:
		if len(r.Entries) != len(cars) {
			t.Fatalf("got %d results, want %d", len(r.Entries), len(cars))
		}
		if r.Entries[0].CarNumber != cars[1].Number {
			t.Fatalf("results[0].CarNumber = %d, want %d", r.Entries[0].CarNumber, cars[1].Number)
		}
	default:
		t.Fatal("expected a race-finished event on the bus")
	}
}

// TestCompileResultsOrdersByLapsThenTime checks the gap formatting rules
// of spec.md section 12: same-lap finishers get a duration gap, lapped
// cars get a laps-behind count.
func TestCompileResultsOrdersByLapsThenTime(t *testing.T) {
	track := buildTrack()
	cars := buildCars(3)
	state := racestate.NewState(track, nil, cars, 5)

	cars[0].IncCompletedLaps()
	cars[0].IncCompletedLaps()
	cars[0].AccumulatedTime = 100 * time.Second

	cars[1].IncCompletedLaps()
	cars[1].IncCompletedLaps()
	cars[1].AccumulatedTime = 105 * time.Second

	cars[2].IncCompletedLaps()
	cars[2].AccumulatedTime = 60 * time.Second

	results := CompileResults(state)
	if results[0].CarNumber != cars[0].Number {
		t.Fatalf("results[0] = car %d, want %d", results[0].CarNumber, cars[0].Number)
	}
	if results[1].CarNumber != cars[1].Number || results[1].GapToLeader != 5*time.Second {
		t.Fatalf("results[1] = %+v, want car %d gap 5s", results[1], cars[1].Number)
	}
	if results[2].CarNumber != cars[2].Number || results[2].LapsBehind != 1 {
		t.Fatalf("results[2] = %+v, want car %d 1 lap behind", results[2], cars[2].Number)
	}
}
