package display

import (
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Compile-time interface check.
var _ domain.AnimationPlayer = (*Animator)(nil)

var defaultPhaseDurations = map[domain.AnimationPhase]time.Duration{
	domain.PhaseSwitchOpen:  600 * time.Millisecond,
	domain.PhaseSwitchClose: 600 * time.Millisecond,
	domain.PhasePour:        1500 * time.Millisecond,
	domain.PhaseCool:        1 * time.Second,
}

// AnimatorOption configures the Animator.
type AnimatorOption func(*Animator)

// WithPhaseDuration makes every phase last d.
func WithPhaseDuration(d time.Duration) AnimatorOption {
	return func(a *Animator) {
		for p := range a.durations {
			a.durations[p] = d
		}
		a.fallback = d
	}
}

// WithOnPhase registers a hook called as each phase starts.
func WithOnPhase(fn func(domain.AnimationPhase)) AnimatorOption {
	return func(a *Animator) {
		a.onPhase = fn
	}
}

// Animator presents animation phases on the terminal. The brew panel shows
// the active phase from the snapshot, so a phase here is just its running
// time.
type Animator struct {
	log       *logger.Logger
	durations map[domain.AnimationPhase]time.Duration
	fallback  time.Duration
	onPhase   func(domain.AnimationPhase)
}

// NewAnimator creates an animator with the default phase lengths.
func NewAnimator(log *logger.Logger, opts ...AnimatorOption) *Animator {
	a := &Animator{
		log:       log,
		durations: make(map[domain.AnimationPhase]time.Duration, len(defaultPhaseDurations)),
		fallback:  time.Second,
	}
	for p, d := range defaultPhaseDurations {
		a.durations[p] = d
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Play runs the phase and calls done from a timer goroutine when it ends.
func (a *Animator) Play(phase domain.AnimationPhase, done func(err error)) {
	d, ok := a.durations[phase]
	if !ok {
		d = a.fallback
	}
	a.log.Debug("animator: %s for %s", phase, d)
	if a.onPhase != nil {
		a.onPhase(phase)
	}
	time.AfterFunc(d, func() { done(nil) })
}
