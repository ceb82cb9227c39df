package timing

import (
	"sync/atomic"
	"time"
)

// Waiter blocks until a deadline or an early wake, whichever comes first.
//
// The wake signal holds at most one pending wake, so any number of Wake calls
// made before a wait collapse into a single early return. The signal is
// cleared each time WaitUntil returns; callers re-check their own state after
// every wait.
type Waiter struct {
	clock    Clock
	signal   chan struct{}
	shutdown atomic.Bool
}

// NewWaiter creates a Waiter measuring deadlines on clock.
func NewWaiter(clock Clock) *Waiter {
	return &Waiter{
		clock:  clock,
		signal: make(chan struct{}, 1),
	}
}

// WaitUntil blocks until the clock reaches deadline or Wake is called. It
// returns at once when the deadline has passed or Shutdown has been called.
func (w *Waiter) WaitUntil(deadline time.Duration) {
	defer w.clear()
	if w.shutdown.Load() {
		return
	}
	remaining := deadline - w.clock.Now()
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-w.signal:
	case <-timer.C:
	}
}

// Wake ends the current wait, or the next one if nobody is waiting. Safe to
// call from any goroutine; it never blocks.
func (w *Waiter) Wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Shutdown makes every current and future wait return immediately.
func (w *Waiter) Shutdown() {
	w.shutdown.Store(true)
	w.Wake()
}

func (w *Waiter) clear() {
	if w.shutdown.Load() {
		return
	}
	select {
	case <-w.signal:
	default:
	}
}
