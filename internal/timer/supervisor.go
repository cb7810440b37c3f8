// Package timer implements the background supervisor that keeps a running
// brew checkpointed and announces when it is nearly done, plus the slower
// watcher that nudges about paused or stalled brews.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/engine"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Brew is the part of the brew engine the supervisor and watcher use.
type Brew interface {
	Snapshot() engine.Snapshot
	Checkpoint(ctx context.Context) error
}

// Compile-time interface check.
var _ Brew = (*engine.Engine)(nil)

// Option configures the supervisor.
type Option func(*Supervisor)

// WithTickInterval sets how often the supervisor checks the brew.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tickInterval = d
	}
}

// WithCheckpointInterval sets how often a running brew's elapsed time is
// saved.
func WithCheckpointInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.checkpointInterval = d
	}
}

// WithAlmostDoneThreshold sets how close to the finish the "almost done"
// announcement is made. Zero disables it.
func WithAlmostDoneThreshold(d time.Duration) Option {
	return func(s *Supervisor) {
		s.almostDoneThreshold = d
	}
}

// WithWatcher enables the watcher with the given options.
func WithWatcher(opts ...WatcherOption) Option {
	return func(s *Supervisor) {
		s.watch = true
		s.watcherOpts = opts
	}
}

// Supervisor runs in the background next to the brew loop.
// Optionally runs a Watcher on a slower cycle.
type Supervisor struct {
	notifier            domain.Notifier
	source              Brew
	log                 *logger.Logger
	tickInterval        time.Duration
	checkpointInterval  time.Duration
	almostDoneThreshold time.Duration

	watch       bool
	watcherOpts []WatcherOption
	watcher     *Watcher

	lastCheckpoint time.Time
	warnedSession  string // session already told it is almost done

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a supervisor with the given dependencies and options.
func New(source Brew, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		notifier:            notifier,
		source:              source,
		log:                 log,
		tickInterval:        1 * time.Second,
		checkpointInterval:  5 * time.Second,
		almostDoneThreshold: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background supervisor loop. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("timer supervisor already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	go s.loop(childCtx)

	if s.watch {
		s.watcher = NewWatcher(s.source, s.notifier, s.log, s.watcherOpts...)
		go s.watcher.Run(childCtx)
	}

	s.log.Info("timer supervisor started (tick=%s, checkpoint=%s)", s.tickInterval, s.checkpointInterval)
}

// Stop gracefully shuts down the supervisor.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.running = false
	s.log.Info("timer supervisor stopped")
}

// loop is the main tick loop.
func (s *Supervisor) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick runs one cycle: checkpoint and announce.
func (s *Supervisor) tick(ctx context.Context, now time.Time) {
	snap := s.source.Snapshot()
	if !snap.Loaded() || !snap.Running {
		return
	}

	if s.checkpointInterval > 0 && now.Sub(s.lastCheckpoint) >= s.checkpointInterval {
		s.lastCheckpoint = now
		if err := s.source.Checkpoint(ctx); err != nil {
			s.log.Error("supervisor: checkpointing session %s: %v", snap.SessionID, err)
		}
	}

	remaining := time.Duration((snap.FinalSec - snap.ElapsedSec) * float64(time.Second))
	if s.almostDoneThreshold > 0 && s.warnedSession != snap.SessionID &&
		remaining > 0 && remaining <= s.almostDoneThreshold {
		s.warnedSession = snap.SessionID
		msg := fmt.Sprintf("[Timer] %s: almost done, %s left.", snap.RecipeName, formatRemaining(remaining))
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.log.Error("supervisor: almost-done notify: %v", err)
		}
	}
}

// formatRemaining returns a human-friendly spoken duration.
// Rounds to the nearest minute once there's at least 1 minute left.
func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	totalSec := int(d.Seconds())
	if totalSec < 60 {
		if totalSec == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", totalSec)
	}
	m := (totalSec + 30) / 60
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
