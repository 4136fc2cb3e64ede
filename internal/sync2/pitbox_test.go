package sync2

import (
	"testing"
	"time"
)

// TestPitBoxHandoff is scenario S3 from spec.md section 8: one car calls
// PerformStop(hard); the crew calls WaitForCar before the car arrives.
// The crew's "received" observation strictly precedes FinishService,
// which strictly precedes the car resuming from PerformStop (property 3).
func TestPitBoxHandoff(t *testing.T) {
	box := NewPitBox()
	const hard = 2

	var receivedAt, finishedAt, resumedAt time.Time

	crewDone := make(chan struct{})
	go func() {
		if !box.WaitForCar(time.Second) {
			t.Error("crew should have observed the car arriving")
		}
		receivedAt = time.Now()
		time.Sleep(60 * time.Millisecond) // simulated service duration
		if err := box.FinishService(); err != nil {
			t.Errorf("FinishService: %v", err)
		}
		finishedAt = time.Now()
		close(crewDone)
	}()

	time.Sleep(20 * time.Millisecond) // crew is waiting before the car arrives
	ok := box.PerformStop(7, hard, nil)
	resumedAt = time.Now()
	<-crewDone

	if !ok {
		t.Fatal("PerformStop should have completed successfully")
	}
	if !receivedAt.Before(finishedAt) {
		t.Fatal("received must strictly precede finished")
	}
	if finishedAt.After(resumedAt) {
		t.Fatal("finished must strictly precede resumed")
	}
}

func TestPitBoxWaitForCarTimeout(t *testing.T) {
	box := NewPitBox()
	start := time.Now()
	ok := box.WaitForCar(80 * time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Fatal("WaitForCar should time out when no car arrives")
	}
	if elapsed < 80*time.Millisecond {
		t.Fatalf("elapsed %v, want >= 80ms", elapsed)
	}
}

func TestPitBoxFinishServiceWithoutWaitIsProgrammingError(t *testing.T) {
	box := NewPitBox()
	if err := box.FinishService(); err == nil {
		t.Fatal("expected a programming error")
	}
}

// TestPitBoxSerializesTwoCars is the scenario from the mandatory-pit-stop
// review: a team's two cars both call PerformStop on the same box around
// the same time. The box must serialize them — the second car's request
// must not stomp the first's in-flight compound choice, and both must
// eventually be serviced rather than one being stranded.
func TestPitBoxSerializesTwoCars(t *testing.T) {
	box := NewPitBox()
	const soft, hard = 0, 2

	results := make(chan struct {
		car int
		ok  bool
	}, 2)

	go func() {
		ok := box.PerformStop(1, soft, nil)
		results <- struct {
			car int
			ok  bool
		}{1, ok}
	}()
	time.Sleep(20 * time.Millisecond) // car 1 reaches the box first

	go func() {
		ok := box.PerformStop(2, hard, nil)
		results <- struct {
			car int
			ok  bool
		}{2, ok}
	}()
	time.Sleep(20 * time.Millisecond) // car 2 queues behind car 1

	for i := 0; i < 2; i++ {
		if !box.WaitForCar(time.Second) {
			t.Fatalf("crew should have observed car %d arriving", i+1)
		}
		if box.ChosenCompound() != soft && box.ChosenCompound() != hard {
			t.Fatalf("unexpected compound %d", box.ChosenCompound())
		}
		time.Sleep(10 * time.Millisecond)
		if err := box.FinishService(); err != nil {
			t.Fatalf("FinishService: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if !r.ok {
				t.Fatalf("car %d should have completed its stop", r.car)
			}
		case <-time.After(time.Second):
			t.Fatal("a car was stranded waiting for service")
		}
	}
}

func TestPitBoxCooperativeStop(t *testing.T) {
	box := NewPitBox()
	done := make(chan bool, 1)
	go func() {
		done <- box.PerformStop(1, 0, func() bool { return true })
	}()
	box.Interrupt()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("PerformStop should have returned false when stopped")
		}
	case <-time.After(time.Second):
		t.Fatal("PerformStop did not observe the stop signal")
	}
}
