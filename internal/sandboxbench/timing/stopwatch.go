package timing

import (
	"time"

	"k8s.io/utils/clock"
)

// Stopwatch measures named intervals against a clock.
// With clock.RealClock durations are derived from the monotonic clock reading.
type Stopwatch struct {
	clock     clock.PassiveClock
	start     time.Time
	lastSplit time.Time
}

// StartStopwatch returns a Stopwatch started now.
func StartStopwatch(c clock.PassiveClock) *Stopwatch {
	now := c.Now()
	return &Stopwatch{
		clock:     c,
		start:     now,
		lastSplit: now,
	}
}

// Elapsed returns the time since the stopwatch was started.
func (s *Stopwatch) Elapsed() time.Duration {
	return s.clock.Since(s.start)
}

// Split returns the time since the previous split (or the start) and begins a new interval.
func (s *Stopwatch) Split() time.Duration {
	now := s.clock.Now()
	d := now.Sub(s.lastSplit)
	s.lastSplit = now
	return d
}
