// Package animation turns step transitions into an ordered queue of
// presentation phases and plays them one at a time through an external
// player. Only one queue drains at a time.
//
// A Sequencer is owned by the brew loop goroutine. Player callbacks may
// arrive on any goroutine and are handed back to the loop through the
// dispatch function.
package animation

import (
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Pour counter timing.
const (
	DefaultCountDelay    = 500 * time.Millisecond
	DefaultCountDuration = time.Second
)

// ErrBusy is returned by Begin while a queue is still draining.
var ErrBusy = errors.New("animation queue busy")

// Completion is a single-shot signal that fires once a queue has fully
// drained.
type Completion struct {
	ch   chan struct{}
	once sync.Once
}

func newCompletion() *Completion {
	return &Completion{ch: make(chan struct{})}
}

// Done returns a channel closed when the queue has drained.
func (c *Completion) Done() <-chan struct{} { return c.ch }

// Fired reports whether the completion has fired.
func (c *Completion) Fired() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

func (c *Completion) fire() {
	c.once.Do(func() { close(c.ch) })
}

// Option configures the sequencer.
type Option func(*Sequencer)

// WithNow replaces the wall-clock source.
func WithNow(now func() time.Time) Option {
	return func(s *Sequencer) {
		s.now = now
	}
}

// WithDispatch sets how player callbacks are delivered back to the owning
// goroutine. The default runs them inline.
func WithDispatch(dispatch func(func())) Option {
	return func(s *Sequencer) {
		s.dispatch = dispatch
	}
}

// WithCountDelay sets the delay between a pour phase starting and the
// volume counter moving.
func WithCountDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		s.countDelay = d
	}
}

// WithCountDuration sets how long the volume counter takes.
func WithCountDuration(d time.Duration) Option {
	return func(s *Sequencer) {
		s.countDuration = d
	}
}

// WithOnStall registers a callback run on the owning goroutine when a phase
// fails and its queue stalls.
func WithOnStall(fn func(ev domain.TransitionEvent, phase domain.AnimationPhase, err error)) Option {
	return func(s *Sequencer) {
		s.onStall = fn
	}
}

// Sequencer plays phase queues.
type Sequencer struct {
	player        domain.AnimationPlayer
	log           *logger.Logger
	now           func() time.Time
	dispatch      func(func())
	countDelay    time.Duration
	countDuration time.Duration
	onStall       func(domain.TransitionEvent, domain.AnimationPhase, error)

	gen        uint64
	busy       bool
	queue      []domain.AnimationPhase
	active     domain.AnimationPhase
	started    time.Time
	stalled    bool
	event      domain.TransitionEvent
	completion *Completion
	counter    *Counter
	displayed  int
}

// New creates a sequencer that presents phases through player. A nil
// player completes every phase immediately.
func New(player domain.AnimationPlayer, log *logger.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		player:        player,
		log:           log,
		now:           time.Now,
		dispatch:      func(fn func()) { fn() },
		countDelay:    DefaultCountDelay,
		countDuration: DefaultCountDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts the queue for a transition. It returns ErrBusy, dropping the
// request, while another queue is draining. An empty queue completes before
// Begin returns.
func (s *Sequencer) Begin(ev domain.TransitionEvent) (*Completion, error) {
	if s.busy {
		s.log.Debug("animation: dropping step %d, %s still playing", ev.StepIndex, s.active)
		return nil, ErrBusy
	}

	s.gen++
	s.event = ev
	s.queue = Expand(ev.ActionType, ev.FromVolume, ev.ToVolume)
	s.completion = newCompletion()
	s.counter = nil
	s.stalled = false
	s.displayed = ev.FromVolume
	s.busy = true

	s.log.Debug("animation: step %d %s -> %v", ev.StepIndex, ev.ActionType, s.queue)
	s.advance()
	return s.completion, nil
}

// advance starts the next phase or completes the queue.
func (s *Sequencer) advance() {
	if len(s.queue) == 0 {
		s.busy = false
		s.active = ""
		if s.counter == nil {
			s.displayed = s.event.ToVolume
		}
		s.completion.fire()
		return
	}

	phase := s.queue[0]
	s.queue = s.queue[1:]
	s.active = phase
	s.started = s.now()

	if phase == domain.PhasePour {
		s.counter = &Counter{
			From:     s.event.FromVolume,
			To:       s.event.ToVolume,
			Start:    s.started.Add(s.countDelay),
			Duration: s.countDuration,
		}
	}

	if s.player == nil {
		s.phaseDone(s.gen, phase, nil)
		return
	}

	gen := s.gen
	s.player.Play(phase, func(err error) {
		s.dispatch(func() { s.phaseDone(gen, phase, err) })
	})
}

// phaseDone handles the player's completion signal for one phase. Signals
// from a queue that has since been reset are ignored.
func (s *Sequencer) phaseDone(gen uint64, phase domain.AnimationPhase, err error) {
	if gen != s.gen || !s.busy || phase != s.active {
		return
	}
	if err != nil {
		// No timeout and no skip: the displayed quantity must stay in step
		// with the pour.
		s.stalled = true
		s.log.Warn("animation: %s phase failed, step %d stalled: %v", phase, s.event.StepIndex, err)
		if s.onStall != nil {
			s.onStall(s.event, phase, err)
		}
		return
	}
	s.advance()
}

// Reset abandons any queue without firing its completion. Late player
// callbacks for the abandoned queue are ignored.
func (s *Sequencer) Reset() {
	s.gen++
	s.busy = false
	s.queue = nil
	s.active = ""
	s.stalled = false
	s.completion = nil
	s.counter = nil
	s.displayed = 0
}

// Pending returns the completion of the draining queue, or nil when idle.
func (s *Sequencer) Pending() *Completion {
	if !s.busy {
		return nil
	}
	return s.completion
}

// Busy reports whether a queue is draining.
func (s *Sequencer) Busy() bool { return s.busy }

// Active returns the phase currently playing, if any.
func (s *Sequencer) Active() (domain.AnimationPhase, bool) {
	return s.active, s.busy
}

// Stalled reports whether the active phase failed.
func (s *Sequencer) Stalled() bool { return s.busy && s.stalled }

// PhaseAge returns how long the active phase has been playing.
func (s *Sequencer) PhaseAge(now time.Time) time.Duration {
	if !s.busy {
		return 0
	}
	return now.Sub(s.started)
}

// Displayed returns the volume to show at now. During and after a pour the
// counter drives it; otherwise it is the last transition's target.
func (s *Sequencer) Displayed(now time.Time) int {
	if s.counter != nil {
		return s.counter.Value(now)
	}
	return s.displayed
}

// SetDisplayed sets the displayed volume outside of any pour, e.g. after a
// seek.
func (s *Sequencer) SetDisplayed(v int) {
	if s.busy {
		return
	}
	s.counter = nil
	s.displayed = v
}
