package animation

import (
	"math"
	"time"
)

// Counter interpolates the displayed volume during a pour phase. It counts
// linearly from From to To between Start and Start+Duration and snaps to
// To afterwards.
type Counter struct {
	From     int
	To       int
	Start    time.Time
	Duration time.Duration
}

// Value returns the displayed volume at now.
func (c Counter) Value(now time.Time) int {
	if now.Before(c.Start) {
		return c.From
	}
	elapsed := now.Sub(c.Start)
	if c.Duration <= 0 || elapsed >= c.Duration {
		return c.To
	}
	frac := float64(elapsed) / float64(c.Duration)
	return c.From + int(math.Round(float64(c.To-c.From)*frac))
}

// Done reports whether the counter has reached To at now.
func (c Counter) Done(now time.Time) bool {
	return !now.Before(c.Start.Add(c.Duration))
}
