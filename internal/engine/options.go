package engine

import (
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Option configures the engine.
type Option func(*Engine)

// WithAnimationPlayer sets the collaborator that presents animation phases.
// Without one, every phase completes immediately.
func WithAnimationPlayer(p domain.AnimationPlayer) Option {
	return func(e *Engine) {
		e.player = p
	}
}

// WithCuePlayer sets the audio cue collaborator.
func WithCuePlayer(p domain.CuePlayer) Option {
	return func(e *Engine) {
		e.cues = p
	}
}

// WithVibrator sets the haptic collaborator.
func WithVibrator(v domain.Vibrator) Option {
	return func(e *Engine) {
		e.haptic = v
	}
}

// WithWakeLock sets the screen wake lock collaborator.
func WithWakeLock(w domain.WakeLock) Option {
	return func(e *Engine) {
		e.wake = w
	}
}

// WithSettings sets locale, voice and notification mode.
func WithSettings(s domain.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithLead sets the "next" lead window in seconds.
func WithLead(sec float64) Option {
	return func(e *Engine) {
		e.lead = sec
	}
}

// WithFrameInterval sets the frame loop cadence.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.frameInterval = d
	}
}

// WithRecomputeInterval sets the minimum interval between status
// recomputations.
func WithRecomputeInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.recomputeInterval = d
	}
}

// WithCountTiming sets the pour counter delay and duration.
func WithCountTiming(delay, duration time.Duration) Option {
	return func(e *Engine) {
		e.countDelay = delay
		e.countDuration = duration
	}
}

// WithNow replaces the wall-clock source.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}
