package sync2

import (
	"sync"
	"time"

	"f1race/internal/raceerr"
)

// FairSemaphore is the multi-slot, FIFO semaphore of spec.md section 4.2:
// chicanes (default capacity 2) and both ends of the pit lane (capacity
// 3). Permits in flight plus permits available always equal Capacity.
type FairSemaphore struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	held     map[int]bool
	waiters  idQueue
}

// NewFairSemaphore builds a semaphore with the given number of permits.
func NewFairSemaphore(capacity int) *FairSemaphore {
	s := &FairSemaphore{capacity: capacity, held: make(map[int]bool)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *FairSemaphore) canAdmit(id int) bool {
	if len(s.held) >= s.capacity {
		return false
	}
	front, ok := s.waiters.front()
	return ok && front == id
}

// Acquire blocks until a permit is free and id is at the head of the
// waiter queue, so a waiter that arrived earlier is always admitted
// earlier even when capacity would otherwise accept an out-of-order
// caller (spec.md section 4.2).
func (s *FairSemaphore) Acquire(id int, stopped func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters.push(id)
	for {
		if stopped != nil && stopped() {
			s.waiters.remove(id)
			s.cond.Broadcast()
			return false
		}
		if s.canAdmit(id) {
			s.waiters.popFront()
			s.held[id] = true
			return true
		}
		s.cond.Wait()
	}
}

// TryAcquire is the zero-wait fast path.
func (s *FairSemaphore) TryAcquire(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.held) >= s.capacity || !s.waiters.isEmpty() {
		return false
	}
	s.held[id] = true
	return true
}

// TryAcquireFor is the bounded-wait variant: it behaves like Acquire but
// gives up and returns false once timeout has elapsed without admission.
func (s *FairSemaphore) TryAcquireFor(id int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters.push(id)

	// sync.Cond has no built-in deadline wait; a timer goroutine nudges
	// the condition variable so the loop below can re-check the clock.
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	for {
		if s.canAdmit(id) {
			s.waiters.popFront()
			s.held[id] = true
			return true
		}
		if time.Now().After(deadline) {
			s.waiters.remove(id)
			return false
		}
		s.cond.Wait()
	}
}

// Release returns id's permit, waking at most the new head (a Broadcast
// is used since sync.Cond cannot target one goroutine directly, but only
// the head's predicate will pass). Release without a matching prior
// Acquire is a programming error.
func (s *FairSemaphore) Release(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held[id] {
		return raceerr.NewProgrammingf("fair semaphore: Release(%d) called without a matching Acquire", id)
	}
	delete(s.held, id)
	s.cond.Broadcast()
	return nil
}

// Interrupt wakes every waiter without changing semaphore state.
func (s *FairSemaphore) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Broadcast()
}

// Held reports the number of permits currently in flight, for tests.
func (s *FairSemaphore) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}
