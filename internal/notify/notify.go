// Package notify decides which acoustic or haptic cue a step transition
// deserves and forwards it to the audio and vibration collaborators.
//
// A Coordinator is owned by the brew loop goroutine. Playback completion
// arrives through the dispatch function.
package notify

import (
	"context"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Vibration patterns, alternating on/off.
var (
	NextPattern   = []time.Duration{200 * time.Millisecond}
	FinishPattern = []time.Duration{300 * time.Millisecond, 100 * time.Millisecond, 300 * time.Millisecond}
)

// Option configures the coordinator.
type Option func(*Coordinator)

// WithDispatch sets how playback callbacks reach the owning goroutine.
// The default runs them inline.
func WithDispatch(dispatch func(func())) Option {
	return func(c *Coordinator) {
		c.dispatch = dispatch
	}
}

// WithSettings sets the initial locale, voice and notification mode.
func WithSettings(s domain.Settings) Option {
	return func(c *Coordinator) {
		c.settings = s
	}
}

// Coordinator turns transitions into cue requests.
type Coordinator struct {
	audio    domain.CuePlayer
	haptic   domain.Vibrator
	log      *logger.Logger
	settings domain.Settings
	dispatch func(func())

	inFlight domain.CueKind
	gen      uint64
}

// New creates a coordinator. Either collaborator may be nil when the
// capability is missing.
func New(audio domain.CuePlayer, haptic domain.Vibrator, log *logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		audio:    audio,
		haptic:   haptic,
		log:      log,
		settings: domain.DefaultSettings(),
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSettings replaces the user settings used for later cues.
func (c *Coordinator) SetSettings(s domain.Settings) {
	c.settings = s
}

// Handle requests a "next" cue when a step enters its lead window.
func (c *Coordinator) Handle(ctx context.Context, ev domain.TransitionEvent) {
	if ev.NewStatus != domain.StatusNext {
		return
	}
	c.request(ctx, domain.CueNextStep)
}

// Finish requests the "finish" cue.
func (c *Coordinator) Finish(ctx context.Context) {
	c.request(ctx, domain.CueFinish)
}

// Reset clears the in-flight marker. Completions from earlier requests
// are ignored afterwards.
func (c *Coordinator) Reset() {
	c.gen++
	c.inFlight = domain.CueNone
}

// InFlight returns the kind of cue currently playing.
func (c *Coordinator) InFlight() domain.CueKind { return c.inFlight }

func (c *Coordinator) request(ctx context.Context, kind domain.CueKind) {
	if c.inFlight == kind {
		c.log.Debug("notify: %s cue already playing, suppressed", kind)
		return
	}

	switch c.settings.NotificationMode {
	case domain.NotifyOff:
		return
	case domain.NotifyVibrate:
		c.vibrate(kind)
		return
	}

	if c.audio == nil {
		c.vibrate(kind)
		return
	}

	c.inFlight = kind
	gen := c.gen
	req := domain.CueRequest{
		Locale: c.settings.Locale,
		Voice:  c.settings.Voice,
		Kind:   kind,
	}
	c.log.Debug("notify: playing %s cue (%s)", kind, req.Locale)
	c.audio.Play(ctx, req, func(err error) {
		c.dispatch(func() { c.played(gen, kind, err) })
	})
}

func (c *Coordinator) played(gen uint64, kind domain.CueKind, err error) {
	if gen != c.gen {
		return
	}
	if c.inFlight == kind {
		c.inFlight = domain.CueNone
	}
	if err != nil {
		c.log.Warn("notify: %s cue failed, falling back to vibration: %v", kind, err)
		c.vibrate(kind)
	}
}

func (c *Coordinator) vibrate(kind domain.CueKind) {
	if c.haptic == nil {
		c.log.Debug("notify: no haptic capability, %s cue dropped", kind)
		return
	}
	pattern := NextPattern
	if kind == domain.CueFinish {
		pattern = FinishPattern
	}
	if err := c.haptic.Vibrate(pattern); err != nil {
		c.log.Warn("notify: vibrating for %s cue: %v", kind, err)
	}
}
