package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/engine"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often the watcher checks the brew.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithPauseNudgeAfter sets how long a started brew may sit paused before
// the user is reminded about it.
func WithPauseNudgeAfter(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pauseNudgeAfter = d
	}
}

// WithStallAfter sets how long one animation phase may run before it is
// reported as stuck.
func WithStallAfter(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.stallAfter = d
	}
}

// WithStallCooldown sets the time between repeated stall warnings.
func WithStallCooldown(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.stallCooldown = d
	}
}

// WithMaxStallWarnings caps how many times one stuck phase is reported.
func WithMaxStallWarnings(n int) WatcherOption {
	return func(w *Watcher) {
		w.maxStallWarnings = n
	}
}

// WithWatchNow overrides the watcher's time source.
func WithWatchNow(now func() time.Time) WatcherOption {
	return func(w *Watcher) {
		w.now = now
	}
}

// Watcher periodically inspects the brew snapshot and nudges the user
// about a brew left paused or an animation that never completes.
// Runs on a slower cycle than the supervisor.
type Watcher struct {
	source           Brew
	notifier         domain.Notifier
	log              *logger.Logger
	interval         time.Duration
	pauseNudgeAfter  time.Duration
	stallAfter       time.Duration
	stallCooldown    time.Duration
	maxStallWarnings int
	now              func() time.Time

	nudgedPause time.Time // StatusSince of the pause already nudged

	stallPhase    time.Time // start of the phase being warned about
	stallWarnings int
	lastStallWarn time.Time
}

// NewWatcher creates a watcher with the given dependencies.
func NewWatcher(source Brew, notifier domain.Notifier, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:           source,
		notifier:         notifier,
		log:              log,
		interval:         15 * time.Second,
		pauseNudgeAfter:  2 * time.Minute,
		stallAfter:       10 * time.Second,
		stallCooldown:    30 * time.Second,
		maxStallWarnings: 3,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watcher loop. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("watcher started (interval=%s)", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one watcher cycle.
func (w *Watcher) check(ctx context.Context) {
	snap := w.source.Snapshot()
	if !snap.Loaded() || snap.Finished {
		return
	}
	now := w.now()

	w.log.Debug("watcher: session=%s recipe=%s status=%s elapsed=%.1f/%.0f phase=%s",
		snap.SessionID, snap.RecipeID, snap.Status, snap.ElapsedSec, snap.FinalSec, snap.Phase)

	if msg := w.pauseMessage(snap, now); msg != "" {
		if err := w.notifier.Notify(ctx, msg); err != nil {
			w.log.Error("watcher: notify: %v", err)
		}
	}

	if msg := w.stallMessage(snap, now); msg != "" {
		if err := w.notifier.NotifyUrgent(ctx, msg); err != nil {
			w.log.Error("watcher: urgent notify: %v", err)
		}
	}
}

// pauseMessage nudges once per pause about a brew that was started and
// then left sitting.
func (w *Watcher) pauseMessage(snap engine.Snapshot, now time.Time) string {
	if snap.Running || snap.Holding || snap.ElapsedSec <= 0 {
		return ""
	}
	if snap.StatusSince.IsZero() || snap.StatusSince.Equal(w.nudgedPause) {
		return ""
	}
	paused := now.Sub(snap.StatusSince)
	if paused < w.pauseNudgeAfter {
		return ""
	}
	w.nudgedPause = snap.StatusSince

	msg := fmt.Sprintf("[Watcher] %s has been paused for %s at %s.",
		snap.RecipeName, formatRemaining(paused), formatClock(snap.ElapsedSec))
	if next, ok := snap.NextStep(); ok {
		msg += fmt.Sprintf(" Next pour: %d ml at %s.", next.CumulativeVolumeMl, formatClock(next.TimeSec))
	}
	return msg
}

// stallMessage escalates when one animation phase runs far longer than it
// should. Warnings for the same phase are spaced by the cooldown and
// capped.
func (w *Watcher) stallMessage(snap engine.Snapshot, now time.Time) string {
	if !snap.Animating || snap.PhaseAge < w.stallAfter {
		return ""
	}

	started := snap.TakenAt.Add(-snap.PhaseAge)
	if !started.Equal(w.stallPhase) {
		w.stallPhase = started
		w.stallWarnings = 0
		w.lastStallWarn = time.Time{}
	}
	if w.stallWarnings >= w.maxStallWarnings {
		return ""
	}
	if !w.lastStallWarn.IsZero() && now.Sub(w.lastStallWarn) < w.stallCooldown {
		return ""
	}

	w.stallWarnings++
	w.lastStallWarn = now

	switch w.stallWarnings {
	case 1:
		return fmt.Sprintf("[Watcher] The %s animation has not finished after %s. The display may be stuck.",
			snap.Phase, formatRemaining(snap.PhaseAge))
	case 2:
		return fmt.Sprintf("[Watcher] Still waiting on the %s animation. Reset the brew if it does not recover.", snap.Phase)
	default:
		return fmt.Sprintf("[Watcher] The %s animation is stuck. Last warning.", snap.Phase)
	}
}

// formatClock renders seconds as m:ss.
func formatClock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
