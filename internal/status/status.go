// Package status maps elapsed brewing time onto per-step lifecycle state
// and raises a transition event exactly once for every actual change.
//
// Statuses only move forward (upcoming, next, current, completed) until
// Reset. The final step is a terminal marker: when its time is reached
// every step is completed and the finished signal is raised once.
//
// An Engine is owned by a single goroutine and is not safe for concurrent use.
package status

import (
	"fmt"
	"math"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// DefaultLeadSec is the width of the "next" window before a step's time.
// Deployments have used both 3 and 5 seconds.
const DefaultLeadSec = 5.0

// Option configures the engine.
type Option func(*Engine)

// WithLead sets the lead window in seconds. Non-positive values disable
// the next status.
func WithLead(sec float64) Option {
	return func(e *Engine) {
		e.lead = sec
	}
}

// Engine derives step statuses from elapsed time.
type Engine struct {
	log      *logger.Logger
	lead     float64
	steps    []domain.CalculatedStep
	finished bool

	onTransition []func(domain.TransitionEvent)
	onFinished   []func()
}

// New creates a status engine with no steps loaded.
func New(log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:  log,
		lead: DefaultLeadSec,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnTransition registers fn to receive every transition event, in step
// index order, after the whole status set for a tick has been applied.
func (e *Engine) OnTransition(fn func(domain.TransitionEvent)) {
	e.onTransition = append(e.onTransition, fn)
}

// OnFinished registers fn to be called once when the final step's time is
// reached.
func (e *Engine) OnFinished(fn func()) {
	e.onFinished = append(e.onFinished, fn)
}

// Load replaces the step list as a whole. Step times must be non-negative
// and strictly increasing. All statuses start as upcoming and the finished
// latch is cleared. The engine keeps its own copy.
func (e *Engine) Load(steps []domain.CalculatedStep) error {
	for i, s := range steps {
		if s.TimeSec < 0 || math.IsNaN(s.TimeSec) {
			return fmt.Errorf("%w: step %d has time %g", domain.ErrInvalidSchedule, i, s.TimeSec)
		}
		if i > 0 && s.TimeSec <= steps[i-1].TimeSec {
			return fmt.Errorf("%w: step %d at %gs does not follow %gs", domain.ErrInvalidSchedule, i, s.TimeSec, steps[i-1].TimeSec)
		}
	}

	next := make([]domain.CalculatedStep, len(steps))
	copy(next, steps)
	for i := range next {
		next[i].Status = domain.StatusUpcoming
	}
	e.steps = next
	e.finished = false
	e.log.Debug("status: loaded %d steps", len(next))
	return nil
}

// Reset returns every step to upcoming and clears the finished latch.
func (e *Engine) Reset() {
	for i := range e.steps {
		e.steps[i].Status = domain.StatusUpcoming
	}
	e.finished = false
}

// Steps returns a copy of the current step list with statuses.
func (e *Engine) Steps() []domain.CalculatedStep {
	out := make([]domain.CalculatedStep, len(e.steps))
	copy(out, e.steps)
	return out
}

// Len returns the number of loaded steps.
func (e *Engine) Len() int { return len(e.steps) }

// Finished reports whether the finished signal has been raised (or primed).
func (e *Engine) Finished() bool { return e.finished }

// FinalTime returns the time of the last step, or 0 with no steps.
func (e *Engine) FinalTime() float64 {
	if len(e.steps) == 0 {
		return 0
	}
	return e.steps[len(e.steps)-1].TimeSec
}

// Current returns the index of the step holding current, or -1.
func (e *Engine) Current() int {
	for i, s := range e.steps {
		if s.Status == domain.StatusCurrent {
			return i
		}
	}
	return -1
}

// Evaluate applies the status rules for elapsed seconds. It returns the
// transitions raised (also delivered to OnTransition handlers). An invalid
// reading leaves every status untouched.
func (e *Engine) Evaluate(elapsed float64) ([]domain.TransitionEvent, error) {
	if err := checkElapsed(elapsed); err != nil {
		return nil, err
	}
	if len(e.steps) == 0 {
		return nil, nil
	}

	var events []domain.TransitionEvent
	for i := range e.steps {
		want := e.derive(i, elapsed)
		old := e.steps[i].Status
		if want <= old {
			continue
		}
		e.steps[i].Status = want
		events = append(events, e.event(i, old, want))
	}

	for _, ev := range events {
		e.log.Debug("status: step %d %s -> %s at %.2fs", ev.StepIndex, ev.OldStatus, ev.NewStatus, elapsed)
		for _, fn := range e.onTransition {
			fn(ev)
		}
	}

	if !e.finished && elapsed >= e.FinalTime() {
		e.finished = true
		e.log.Debug("status: finished at %.2fs", elapsed)
		for _, fn := range e.onFinished {
			fn()
		}
	}
	return events, nil
}

// Prime sets every status for elapsed seconds without raising events or
// the finished signal. Used when jumping into a brew part-way through.
func (e *Engine) Prime(elapsed float64) error {
	if err := checkElapsed(elapsed); err != nil {
		return err
	}
	for i := range e.steps {
		e.steps[i].Status = e.derive(i, elapsed)
	}
	e.finished = len(e.steps) > 0 && elapsed >= e.FinalTime()
	return nil
}

// derive is the pure status rule for step i.
func (e *Engine) derive(i int, elapsed float64) domain.StepStatus {
	last := len(e.steps) - 1
	t := e.steps[i].TimeSec

	switch {
	case elapsed >= e.steps[last].TimeSec:
		return domain.StatusCompleted
	case elapsed >= t:
		if elapsed < e.steps[i+1].TimeSec {
			return domain.StatusCurrent
		}
		return domain.StatusCompleted
	case e.lead > 0 && elapsed >= t-e.lead:
		return domain.StatusNext
	default:
		return domain.StatusUpcoming
	}
}

func (e *Engine) event(i int, old, next domain.StepStatus) domain.TransitionEvent {
	from := 0
	if i > 0 {
		from = e.steps[i-1].CumulativeVolumeMl
	}
	return domain.TransitionEvent{
		StepIndex:  i,
		OldStatus:  old,
		NewStatus:  next,
		ActionType: e.steps[i].ActionType,
		FromVolume: from,
		ToVolume:   e.steps[i].CumulativeVolumeMl,
	}
}

func checkElapsed(elapsed float64) error {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed < 0 {
		return fmt.Errorf("evaluating %g: %w", elapsed, domain.ErrInvalidElapsed)
	}
	return nil
}
