// Package clock tracks elapsed brewing time. Elapsed time is always derived
// from a reference instant rather than accumulated per tick, so irregular
// tick intervals and pause/resume cycles never introduce drift.
//
// A Clock is owned by a single goroutine and is not safe for concurrent use.
package clock

import (
	"math"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the wall-clock source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// Clock is a start/pause/reset stopwatch.
type Clock struct {
	now       func() time.Time
	reference time.Time     // valid while running
	frozen    time.Duration // valid while paused
	running   bool
}

// New creates a stopped clock at zero.
func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start resumes the clock from its current elapsed value.
// Starting a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.reference = c.now().Add(-c.frozen)
	c.running = true
}

// Pause freezes elapsed time at its current value.
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.frozen = c.now().Sub(c.reference)
	c.running = false
}

// Reset stops the clock and zeroes it.
func (c *Clock) Reset() {
	c.running = false
	c.frozen = 0
	c.reference = time.Time{}
}

// maxElapsedSec is the longest span a time.Duration can hold.
var maxElapsedSec = time.Duration(math.MaxInt64).Seconds()

// SetElapsed jumps to sec seconds without changing whether the clock runs.
// Negative and non-finite values clamp to zero, values beyond what a
// time.Duration holds clamp to that limit.
func (c *Clock) SetElapsed(sec float64) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		sec = 0
	}
	d := time.Duration(math.MaxInt64)
	if sec < maxElapsedSec {
		d = time.Duration(sec * float64(time.Second))
	}
	if c.running {
		c.reference = c.now().Add(-d)
		return
	}
	c.frozen = d
}

// Tick samples the wall clock once and returns the elapsed seconds for
// this logical tick. Every consumer of a tick must share this reading.
func (c *Clock) Tick() float64 {
	return c.At(c.now())
}

// At returns the elapsed seconds as of now, a reading already taken from
// the clock's time source. Callers that need the instant and the elapsed
// value of one tick read the source once and pass it here.
func (c *Clock) At(now time.Time) float64 {
	return c.elapsedAt(now).Seconds()
}

// Elapsed returns elapsed seconds. It is equivalent to Tick.
func (c *Clock) Elapsed() float64 {
	return c.Tick()
}

// Running reports whether the clock is advancing.
func (c *Clock) Running() bool {
	return c.running
}

// State returns the clock's externally visible state.
func (c *Clock) State() domain.ClockState {
	return domain.ClockState{ElapsedSec: c.Tick(), IsRunning: c.running}
}

func (c *Clock) elapsedAt(now time.Time) time.Duration {
	if !c.running {
		return c.frozen
	}
	d := now.Sub(c.reference)
	if d < 0 {
		return 0
	}
	return d
}
