package sync2

import (
	"sync"
	"testing"
	"time"
)

// TestFairSemaphoreFIFOFairness is scenario S2 from spec.md section 8.
func TestFairSemaphoreFIFOFairness(t *testing.T) {
	s := NewFairSemaphore(2)
	if !s.TryAcquire(1) || !s.TryAcquire(2) {
		t.Fatal("A and B should acquire immediately")
	}

	start := time.Now()
	admittedAt := make(chan time.Duration, 1)
	go func() {
		s.Acquire(3, nil)
		admittedAt <- time.Since(start)
	}()

	time.Sleep(50 * time.Millisecond) // ensure C is queued before A releases
	time.AfterFunc(300*time.Millisecond, func() { s.Release(1) })
	time.AfterFunc(500*time.Millisecond, func() { s.Release(2) })

	select {
	case got := <-admittedAt:
		if got < 250*time.Millisecond || got > 400*time.Millisecond {
			t.Fatalf("C admitted at %v, want ~300ms", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("C was never admitted")
	}
}

// TestFairSemaphoreCapacityBoundary is property/boundary 8.
func TestFairSemaphoreCapacityBoundary(t *testing.T) {
	s := NewFairSemaphore(2)
	var wg sync.WaitGroup
	var mu sync.Mutex
	maxHeld := 0

	for id := 1; id <= 10; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Acquire(id, nil)
			mu.Lock()
			if h := s.Held(); h > maxHeld {
				maxHeld = h
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			if err := s.Release(id); err != nil {
				t.Errorf("Release(%d): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if maxHeld > 2 {
		t.Fatalf("observed %d simultaneous holders, want <= 2", maxHeld)
	}
}

// TestFairSemaphoreTimeout is boundary property 9: a bounded acquire
// returns false after the timeout elapses, in [timeout, timeout+tolerance].
func TestFairSemaphoreTimeout(t *testing.T) {
	s := NewFairSemaphore(1)
	s.TryAcquire(1) // saturate

	start := time.Now()
	ok := s.TryAcquireFor(2, 150*time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Fatal("TryAcquireFor should have timed out")
	}
	if elapsed < 150*time.Millisecond || elapsed > 400*time.Millisecond {
		t.Fatalf("elapsed %v, want within [150ms, 400ms]", elapsed)
	}
}

func TestFairSemaphoreReleaseWithoutAcquireIsProgrammingError(t *testing.T) {
	s := NewFairSemaphore(2)
	if err := s.Release(1); err == nil {
		t.Fatal("expected a programming error from an unmatched Release")
	}
}

func TestFairSemaphorePermitAccounting(t *testing.T) {
	s := NewFairSemaphore(3)
	for _, id := range []int{1, 2, 3} {
		if !s.TryAcquire(id) {
			t.Fatalf("expected acquire %d to succeed", id)
		}
	}
	if s.TryAcquire(4) {
		t.Fatal("fourth acquire should fail, capacity is 3")
	}
	if err := s.Release(2); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !s.TryAcquire(4) {
		t.Fatal("acquire should succeed after a release freed a permit")
	}
}
