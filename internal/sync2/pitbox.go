package sync2

import (
	"sync"
	"time"

	"f1race/internal/raceerr"
)

// PitBox is the mutex + two condition variable producer/consumer handoff
// of spec.md section 4.4, coupling one car worker (producer) with one
// crew worker (consumer) per team. A team's two cars share one box, so
// admission is FIFO-serialized the same way Monitor and FairSemaphore
// serialize theirs: at most one car is resident at a time, and a second
// car whose strategist fires on the same tick queues behind the first
// instead of overwriting its in-flight request.
type PitBox struct {
	mu sync.Mutex

	carArrived      *sync.Cond
	serviceComplete *sync.Cond

	waiters  idQueue
	occupied bool

	currentCar        int
	hasCurrentCar     bool
	serviceRequested  bool
	serviceInProgress bool
	serviceDone       bool
	chosenCompound    int
}

// NewPitBox builds an empty, idle pit box.
func NewPitBox() *PitBox {
	b := &PitBox{}
	b.carArrived = sync.NewCond(&b.mu)
	b.serviceComplete = sync.NewCond(&b.mu)
	return b
}

// PerformStop is the car side of the protocol (spec.md section 4.4, steps
// 1 and 5): it first queues for exclusive residency (carID must reach the
// head of the waiter queue with the box free), then sets the request,
// signals carArrived, and waits for its own service to complete. stopped
// is polled on every wake for cooperative shutdown; if shutdown fires
// before the crew ever completes the stop, PerformStop returns false.
func (b *PitBox) PerformStop(carID int, compound int, stopped func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.waiters.push(carID)
	for {
		if stopped != nil && stopped() {
			b.waiters.remove(carID)
			b.carArrived.Broadcast()
			return false
		}
		front, ok := b.waiters.front()
		if !b.occupied && ok && front == carID {
			b.waiters.popFront()
			b.occupied = true
			break
		}
		b.carArrived.Wait()
	}

	b.currentCar = carID
	b.hasCurrentCar = true
	b.chosenCompound = compound
	b.serviceRequested = true
	b.serviceDone = false
	b.carArrived.Broadcast()

	for !(b.serviceDone && b.currentCar == carID) {
		if stopped != nil && stopped() {
			return false
		}
		b.serviceComplete.Wait()
	}

	b.serviceDone = false
	b.hasCurrentCar = false
	b.serviceInProgress = false
	b.occupied = false
	b.carArrived.Broadcast()
	return true
}

// WaitForCar is the crew side of step 2: it blocks, with a deadline so the
// crew can periodically check for shutdown, until serviceRequested is
// true, then marks serviceInProgress. It returns false on timeout.
func (b *PitBox) WaitForCar(deadline time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.serviceRequested {
		timer := time.AfterFunc(deadline, func() {
			b.mu.Lock()
			b.carArrived.Broadcast()
			b.mu.Unlock()
		})
		defer timer.Stop()

		expiry := time.Now().Add(deadline)
		for !b.serviceRequested {
			if time.Now().After(expiry) {
				return false
			}
			b.carArrived.Wait()
		}
	}

	b.serviceRequested = false
	b.serviceInProgress = true
	return true
}

// FinishService is step 4: the crew marks the stop done and wakes every
// waiter on serviceComplete. Broadcast rather than Signal, since a car
// whose wait was interrupted by shutdown and a fresh resident could in
// principle both be parked on the same condition variable; each waiter
// re-checks that currentCar still names it before treating the stop as
// its own. Calling it without a prior, still-in-progress WaitForCar is a
// programming error.
func (b *PitBox) FinishService() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.serviceInProgress {
		return raceerr.NewProgrammingf("pit box: FinishService called with no service in progress")
	}
	b.serviceDone = true
	b.serviceInProgress = false
	b.serviceComplete.Broadcast()
	return nil
}

// ChosenCompound reports the compound requested for the stop currently in
// progress.
func (b *PitBox) ChosenCompound() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chosenCompound
}

// Occupied reports whether a car is currently bound to this box.
func (b *PitBox) Occupied() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasCurrentCar
}

// Interrupt wakes both condition variables without changing state, used
// by the controller's shutdown fan-out so a crew blocked in WaitForCar or
// a car blocked in PerformStop re-checks its stopped predicate promptly.
func (b *PitBox) Interrupt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carArrived.Broadcast()
	b.serviceComplete.Broadcast()
}
