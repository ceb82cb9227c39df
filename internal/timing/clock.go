// Package timing provides the monotonic clock and the interruptible waiter the
// scheduler measures and sleeps with.
package timing

import "time"

// Clock reports elapsed time on a monotonic scale. Deadlines throughout the
// scheduler are offsets on this scale, with zero meaning "not set".
type Clock interface {
	Now() time.Duration
}

// Monotonic measures elapsed time since its creation using the runtime's
// monotonic clock reading.
type Monotonic struct {
	origin time.Time
}

// NewMonotonic starts a clock at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

func (m *Monotonic) Now() time.Duration {
	return time.Since(m.origin)
}
