package clock

import "time"

// DefaultRecomputeInterval bounds how often status recomputation runs.
const DefaultRecomputeInterval = 100 * time.Millisecond

// DefaultFrameInterval is the frame callback cadence.
const DefaultFrameInterval = 16 * time.Millisecond

// Throttle coalesces frame ticks so that work runs at most once per
// minimum interval.
type Throttle struct {
	min    time.Duration
	last   time.Time
	primed bool
}

// NewThrottle creates a throttle. A non-positive interval never throttles.
func NewThrottle(min time.Duration) *Throttle {
	return &Throttle{min: min}
}

// Due reports whether work should run at now, and if so records now as the
// last run. The first call is always due.
func (t *Throttle) Due(now time.Time) bool {
	if t.primed && now.Sub(t.last) < t.min {
		return false
	}
	t.last = now
	t.primed = true
	return true
}

// Reset makes the next call to Due return true.
func (t *Throttle) Reset() {
	t.primed = false
}
