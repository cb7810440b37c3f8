package engine

import (
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Snapshot is an immutable view of the brew at one instant.
type Snapshot struct {
	SessionID   string
	RecipeID    string
	RecipeName  string
	Locale      string
	Status      domain.SessionStatus
	StatusSince time.Time
	ElapsedSec  float64
	FinalSec    float64
	Running     bool
	Holding     bool // clock held until an animation drains
	Finished    bool
	Steps       []domain.CalculatedStep
	Current     int // index of the current step, -1 if none
	Displayed   int // volume shown by the pour counter
	Target      int // total water for the brew
	Phase       domain.AnimationPhase
	Animating   bool
	Stalled     bool
	PhaseAge    time.Duration
	TakenAt     time.Time
}

// Loaded reports whether the snapshot belongs to an open session.
func (s Snapshot) Loaded() bool { return s.SessionID != "" }

// CurrentStep returns the step holding current, if any.
func (s Snapshot) CurrentStep() (domain.CalculatedStep, bool) {
	if s.Current < 0 || s.Current >= len(s.Steps) {
		return domain.CalculatedStep{}, false
	}
	return s.Steps[s.Current], true
}

// NextStep returns the first step that has not started yet, if any.
func (s Snapshot) NextStep() (domain.CalculatedStep, bool) {
	for _, st := range s.Steps {
		if st.Status == domain.StatusUpcoming || st.Status == domain.StatusNext {
			return st, true
		}
	}
	return domain.CalculatedStep{}, false
}

// OnSnapshot registers an observer. Register before Run; observers run on
// the loop goroutine and must return quickly.
func (e *Engine) OnSnapshot(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Snapshot returns the most recently published snapshot. Safe for
// concurrent use.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// publish stores and broadcasts a snapshot for one reading of the time
// source. elapsed must be the clock's value at now.
func (e *Engine) publish(now time.Time, elapsed float64) {
	snap := e.snapshot(now, elapsed)

	e.mu.Lock()
	e.latest = snap
	observers := e.observers
	e.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (e *Engine) snapshot(now time.Time, elapsed float64) Snapshot {
	snap := Snapshot{Current: -1, TakenAt: now}
	if e.session == nil {
		return snap
	}

	steps := e.status.Steps()
	phase, animating := e.seq.Active()

	snap.SessionID = e.session.ID
	snap.RecipeID = e.session.RecipeID
	snap.RecipeName = e.session.RecipeName
	snap.Locale = e.locale
	snap.Status = e.session.Status
	snap.StatusSince = e.session.UpdatedAt
	snap.ElapsedSec = elapsed
	snap.FinalSec = e.status.FinalTime()
	snap.Running = e.clock.Running()
	snap.Holding = e.hold != nil
	snap.Finished = e.status.Finished()
	snap.Steps = steps
	snap.Current = e.status.Current()
	snap.Displayed = e.seq.Displayed(now)
	snap.Phase = phase
	snap.Animating = animating
	snap.Stalled = e.seq.Stalled()
	snap.PhaseAge = e.seq.PhaseAge(now)
	if n := len(steps); n > 0 {
		snap.Target = steps[n-1].CumulativeVolumeMl
	}
	return snap
}
