package sync2

import (
	"sync"

	"f1race/internal/raceerr"
)

// Monitor is the single-slot, FIFO segment monitor of spec.md section 4.1,
// guarding tight turns. Admission requires occupants < 1 AND the caller is
// at the head of the waiter queue; waiters revalidate their predicate on
// every wake, so spurious wakes are harmless.
type Monitor struct {
	mu       sync.Mutex
	cond     *sync.Cond
	occupied bool
	occupant int
	hasOccupant bool
	waiters  idQueue
}

// NewMonitor builds an empty, unoccupied monitor.
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enter suspends the caller until it is admitted: occupants < 1 and id is
// at the head of the waiter queue. Safe to call from multiple goroutines
// concurrently for distinct ids.
//
// stopped is polled each time the waiter is woken (spurious or not); when
// it reports true, Enter treats this as cooperative shutdown (spec.md
// section 5), removes id from the queue and returns false instead of
// granting admission. A nil stopped is treated as "never stops".
func (m *Monitor) Enter(id int, stopped func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiters.push(id)
	for {
		if stopped != nil && stopped() {
			m.waiters.remove(id)
			m.cond.Broadcast()
			return false
		}
		front, ok := m.waiters.front()
		if !m.occupied && ok && front == id {
			m.waiters.popFront()
			m.occupied = true
			m.occupant = id
			m.hasOccupant = true
			return true
		}
		m.cond.Wait()
	}
}

// TryEnter is the non-blocking fast path: it succeeds only when the
// waiter queue is empty and the monitor is free.
func (m *Monitor) TryEnter(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupied || !m.waiters.isEmpty() {
		return false
	}
	m.occupied = true
	m.occupant = id
	m.hasOccupant = true
	return true
}

// Leave releases the monitor and wakes every waiter so the new head can
// re-evaluate its predicate. Calling Leave without a matching prior Enter
// (by the same id) is a programming error, per spec.md section 7.
func (m *Monitor) Leave(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.occupied || !m.hasOccupant || m.occupant != id {
		return raceerr.NewProgrammingf("monitor: Leave(%d) called without a matching Enter", id)
	}
	m.occupied = false
	m.hasOccupant = false
	m.cond.Broadcast()
	return nil
}

// Cancel removes a waiting (not yet admitted) id from the queue, used when
// a car worker is shut down while blocked in Enter. It wakes the new head
// so admission re-evaluation proceeds.
func (m *Monitor) Cancel(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiters.remove(id)
	m.cond.Broadcast()
}

// Interrupt wakes every waiter without changing monitor state, so a
// blocked Enter re-evaluates its stopped predicate promptly instead of
// waiting for an unrelated Leave. Called by the controller's shutdown
// fan-out (spec.md section 4.6).
func (m *Monitor) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cond.Broadcast()
}

// Occupants reports the current occupant count (0 or 1), for tests.
func (m *Monitor) Occupants() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.occupied {
		return 1
	}
	return 0
}
