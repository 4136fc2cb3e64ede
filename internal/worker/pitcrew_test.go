package worker

import (
	"math/rand"
	"testing"
	"time"

	"f1race/internal/config"
	"f1race/internal/logging"
	"f1race/internal/model"
	"f1race/internal/racestate"
	"f1race/internal/sync2"
)

// TestCrewWorkerServicesOneCar is scenario S3 from spec.md section 8: a
// car's PerformStop call unblocks once the crew calls FinishService,
// with the chosen compound carried through.
func TestCrewWorkerServicesOneCar(t *testing.T) {
	box := sync2.NewPitBox()
	track := buildTestTrack()
	cars := buildTestCars(1)
	state := racestate.NewState(track, nil, cars, 10)
	cfg := config.Default()
	cfg.PitServiceDurMin = time.Millisecond
	cfg.PitServiceDurMax = 2 * time.Millisecond

	crew := &CrewWorker{
		Team:  "team",
		Box:   box,
		State: state,
		Cfg:   cfg,
		Log:   logging.Discard{},
		Rng:   rand.New(rand.NewSource(1)),
	}
	go crew.Run()

	done := make(chan bool, 1)
	go func() {
		done <- box.PerformStop(cars[0].Number, int(model.Hard), func() bool { return false })
	}()

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("PerformStop returned false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PerformStop did not complete in time")
	}

	if box.ChosenCompound() != int(model.Hard) {
		t.Fatalf("ChosenCompound = %d, want %d", box.ChosenCompound(), int(model.Hard))
	}

	state.RaiseFinished()
}

func buildTestTrack() *model.Track {
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

func buildTestCars(n int) []*model.Car {
	cars := make([]*model.Car, n)
	for i := 0; i < n; i++ {
		cars[i] = model.NewCar(i+1, "team", model.Driver{Name: "driver", Skill: 0.5}, model.Medium)
	}
	return cars
}
