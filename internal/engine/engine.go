// Package engine runs a brewing session. A single loop goroutine owns the
// elapsed clock, the status engine, the animation sequencer and the
// notification coordinator; everything else talks to it through commands.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/animation"
	"github.com/hammamikhairi/ottobrew/internal/clock"
	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/notify"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
	"github.com/hammamikhairi/ottobrew/internal/status"
)

// ErrStopped is returned by commands issued after Run has returned.
var ErrStopped = errors.New("brew engine stopped")

const (
	stateIdle int32 = iota
	stateLooping
	stateStopped
)

// Engine manages a single brewing session. It depends only on interfaces
// and is fully testable with mocks.
//
// Before Run is called, commands execute on the caller's goroutine. Once
// Run is looping, commands are marshalled onto the loop and block until
// applied. Observers registered with OnSnapshot are called on the loop and
// must not call back into the engine synchronously.
type Engine struct {
	recipes domain.RecipeSource
	store   domain.SessionStore
	log     *logger.Logger

	player   domain.AnimationPlayer
	cues     domain.CuePlayer
	haptic   domain.Vibrator
	wake     domain.WakeLock
	settings domain.Settings

	lead              float64
	frameInterval     time.Duration
	recomputeInterval time.Duration
	countDelay        time.Duration
	countDuration     time.Duration
	now               func() time.Time

	// Owned by the loop.
	clock    *clock.Clock
	status   *status.Engine
	seq      *animation.Sequencer
	notes    *notify.Coordinator
	throttle *clock.Throttle
	def      *domain.RecipeDefinition
	session  *domain.Session
	locale   string
	loopCtx  context.Context

	wantRunning bool                  // user asked the clock to run
	hold        *animation.Completion // first pour or a stalled step holds the clock
	lastAnim    *animation.Completion
	wakeHeld    bool

	state atomic.Int32
	cmds  chan func()
	done  chan struct{}

	mu        sync.RWMutex
	latest    Snapshot
	observers []func(Snapshot)
}

// New creates a brew engine with the given dependencies and options.
func New(recipes domain.RecipeSource, store domain.SessionStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		recipes:           recipes,
		store:             store,
		log:               log,
		settings:          domain.DefaultSettings(),
		lead:              status.DefaultLeadSec,
		frameInterval:     clock.DefaultFrameInterval,
		recomputeInterval: clock.DefaultRecomputeInterval,
		countDelay:        animation.DefaultCountDelay,
		countDuration:     animation.DefaultCountDuration,
		now:               time.Now,
		loopCtx:           context.Background(),
		cmds:              make(chan func(), 64),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.clock = clock.New(clock.WithNow(e.now))
	e.throttle = clock.NewThrottle(e.recomputeInterval)
	e.status = status.New(log, status.WithLead(e.lead))
	e.seq = animation.New(e.player, log,
		animation.WithNow(e.now),
		animation.WithDispatch(e.post),
		animation.WithCountDelay(e.countDelay),
		animation.WithCountDuration(e.countDuration),
		animation.WithOnStall(e.onStall),
	)
	e.notes = notify.New(e.cues, e.haptic, log,
		notify.WithSettings(e.settings),
		notify.WithDispatch(e.post),
	)

	e.status.OnTransition(e.onTransition)
	e.status.OnFinished(e.onFinished)
	return e
}

// ListRecipes returns all available recipes.
func (e *Engine) ListRecipes(ctx context.Context) ([]domain.RecipeSummary, error) {
	return e.recipes.List(ctx)
}

// GetRecipe returns a full recipe definition by ID.
func (e *Engine) GetRecipe(ctx context.Context, id string) (*domain.RecipeDefinition, error) {
	return e.recipes.Get(ctx, id)
}

// Schedule generates the pour schedule for a recipe without opening a
// session. Zero-valued params fields take the recipe defaults.
func (e *Engine) Schedule(ctx context.Context, recipeID string, params domain.BrewParams) ([]domain.CalculatedStep, domain.BrewParams, error) {
	def, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, params, fmt.Errorf("getting recipe: %w", err)
	}
	p := withDefaults(def, params)
	steps, err := generate(def, p)
	return steps, p, err
}

// History returns stored sessions, most recent first.
func (e *Engine) History(ctx context.Context, limit int) ([]*domain.Session, error) {
	return e.store.List(ctx, limit)
}

// Open generates the schedule for a recipe and starts a new, paused session.
// A previously open session that had not finished is marked abandoned.
func (e *Engine) Open(ctx context.Context, recipeID string, params domain.BrewParams) (*domain.Session, error) {
	var out *domain.Session
	err := e.do(func() error {
		s, err := e.open(ctx, recipeID, params)
		out = s
		return err
	})
	return out, err
}

// Resume reloads a stored session and jumps the clock to its saved elapsed
// time. The session is left paused.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*domain.Session, error) {
	var out *domain.Session
	err := e.do(func() error {
		s, err := e.resume(ctx, sessionID)
		out = s
		return err
	})
	return out, err
}

// Start starts or resumes the clock. On a fresh session the first pour's
// animation plays while the clock holds at zero.
func (e *Engine) Start(ctx context.Context) error {
	return e.do(func() error { return e.start(ctx) })
}

// Pause freezes the clock. Safe to call in any state.
func (e *Engine) Pause(ctx context.Context) error {
	return e.do(func() error { return e.pause(ctx) })
}

// Reset stops the clock, zeroes it and returns every step to upcoming.
// Safe to call in any state.
func (e *Engine) Reset(ctx context.Context) error {
	return e.do(func() error { return e.reset(ctx) })
}

// Seek jumps to sec seconds without raising transitions for the skipped
// span and without changing whether the clock runs. A hold on a playing or
// stalled animation is dropped.
func (e *Engine) Seek(ctx context.Context, sec float64) error {
	return e.do(func() error { return e.seek(ctx, sec) })
}

// Checkpoint saves the running session's elapsed time.
func (e *Engine) Checkpoint(ctx context.Context) error {
	return e.do(func() error {
		if e.session == nil || e.session.Status != domain.SessionActive {
			return nil
		}
		e.session.ElapsedSec = e.clock.Elapsed()
		return e.persist(ctx)
	})
}

// SetSettings replaces locale, voice and notification mode.
func (e *Engine) SetSettings(s domain.Settings) error {
	return e.do(func() error {
		e.settings = s
		e.applyLocale()
		return nil
	})
}

// Session returns a copy of the open session, or nil.
func (e *Engine) Session() *domain.Session {
	var out *domain.Session
	_ = e.do(func() error {
		if e.session != nil {
			s := *e.session
			out = &s
		}
		return nil
	})
	return out
}

func (e *Engine) open(ctx context.Context, recipeID string, params domain.BrewParams) (*domain.Session, error) {
	def, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}

	p := withDefaults(def, params)
	steps, err := generate(def, p)
	if err != nil {
		return nil, err
	}

	e.abandon(ctx)
	if err := e.load(def, steps); err != nil {
		return nil, err
	}

	now := e.now()
	e.session = &domain.Session{
		ID:         newSessionID(),
		RecipeID:   def.ID,
		RecipeName: def.Name,
		Params:     p,
		Status:     domain.SessionPaused,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.persist(ctx); err != nil {
		return nil, err
	}

	e.log.Info("opened session %s for %q (%.1f g, %s, %s, %d steps)",
		e.session.ID, def.Name, p.BeansGrams, p.Flavor, p.Strength, len(steps))
	e.publish(now, e.clock.At(now))
	s := *e.session
	return &s, nil
}

func (e *Engine) resume(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session.Status == domain.SessionCompleted {
		return nil, fmt.Errorf("resuming %s: %w", sessionID, domain.ErrSessionFinished)
	}

	def, err := e.recipes.Get(ctx, session.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}
	steps, err := generate(def, session.Params)
	if err != nil {
		return nil, err
	}

	if e.session == nil || e.session.ID != session.ID {
		e.abandon(ctx)
	}
	if err := e.load(def, steps); err != nil {
		return nil, err
	}

	e.session = session
	e.session.Status = domain.SessionPaused
	if err := e.seek(ctx, session.ElapsedSec); err != nil {
		return nil, err
	}

	e.log.Info("resumed session %s at %.1fs", session.ID, session.ElapsedSec)
	s := *e.session
	return &s, nil
}

// load installs a freshly generated schedule and resets every component.
func (e *Engine) load(def *domain.RecipeDefinition, steps []domain.CalculatedStep) error {
	if err := e.status.Load(steps); err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	e.def = def
	e.clock.Reset()
	e.seq.Reset()
	e.notes.Reset()
	e.throttle.Reset()
	e.hold = nil
	e.lastAnim = nil
	e.wantRunning = false
	e.applyLocale()
	return nil
}

func (e *Engine) start(ctx context.Context) error {
	if e.session == nil {
		return domain.ErrNoSession
	}
	if e.status.Finished() {
		return domain.ErrSessionFinished
	}
	if e.wantRunning {
		return nil
	}

	e.wantRunning = true
	e.acquireWake(ctx)
	e.session.Status = domain.SessionActive

	now := e.now()
	elapsed := e.clock.At(now)
	switch {
	case e.hold != nil:
		// Paused during a held animation; the clock starts when it drains.
	default:
		e.lastAnim = nil
		e.evaluate(elapsed)
		if e.hold == nil && elapsed == 0 && e.lastAnim != nil && !e.lastAnim.Fired() {
			e.hold = e.lastAnim
			e.log.Debug("engine: holding clock for the first pour animation")
		}
		if e.hold != nil {
			break
		}
		e.clock.Start()
	}
	e.throttle.Reset()

	e.log.Info("session %s started at %.1fs", e.session.ID, elapsed)
	e.publish(now, elapsed)
	return e.persist(ctx)
}

func (e *Engine) pause(ctx context.Context) error {
	e.wantRunning = false
	e.clock.Pause()
	if e.session == nil || e.session.Status != domain.SessionActive {
		return nil
	}

	now := e.now()
	e.session.Status = domain.SessionPaused
	e.session.ElapsedSec = e.clock.At(now)
	e.log.Info("session %s paused at %.1fs", e.session.ID, e.session.ElapsedSec)
	e.publish(now, e.session.ElapsedSec)
	return e.persist(ctx)
}

func (e *Engine) reset(ctx context.Context) error {
	e.wantRunning = false
	e.hold = nil
	e.lastAnim = nil
	e.clock.Reset()
	e.status.Reset()
	e.seq.Reset()
	e.notes.Reset()
	e.throttle.Reset()
	e.releaseWake()

	if e.session == nil {
		return nil
	}
	e.session.Status = domain.SessionPaused
	e.session.ElapsedSec = 0
	e.log.Info("session %s reset", e.session.ID)
	e.publish(e.now(), 0)
	return e.persist(ctx)
}

func (e *Engine) seek(ctx context.Context, sec float64) error {
	if e.session == nil {
		return domain.ErrNoSession
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return fmt.Errorf("seeking to %g: %w", sec, domain.ErrInvalidElapsed)
	}

	e.clock.SetElapsed(sec)
	now := e.now()
	elapsed := e.clock.At(now)
	if err := e.status.Prime(elapsed); err != nil {
		return fmt.Errorf("seeking: %w", err)
	}
	e.hold = nil
	e.lastAnim = nil
	e.seq.Reset()
	e.notes.Reset()
	e.seq.SetDisplayed(e.volumeAt(elapsed))
	e.throttle.Reset()

	e.session.ElapsedSec = elapsed
	switch {
	case e.status.Finished():
		e.wantRunning = false
		e.clock.Pause()
		e.releaseWake()
		e.session.Status = domain.SessionCompleted
	case e.wantRunning:
		// The cleared hold no longer keeps the clock back.
		e.clock.Start()
	}

	e.publish(now, elapsed)
	return e.persist(ctx)
}

// frame is one iteration of the frame loop. The time source is read once;
// the status engine and the published snapshot share that reading.
func (e *Engine) frame() {
	if e.hold != nil && e.hold.Fired() {
		e.releaseHold()
	}
	now := e.now()
	if !e.throttle.Due(now) {
		return
	}
	elapsed := e.clock.At(now)
	if e.clock.Running() {
		e.evaluate(elapsed)
	}
	e.publish(now, elapsed)
}

// evaluate runs the status engine for one elapsed reading. Failures are
// logged and retried on the next tick.
func (e *Engine) evaluate(elapsed float64) {
	if e.session == nil {
		return
	}
	if _, err := e.status.Evaluate(elapsed); err != nil {
		e.log.Warn("engine: evaluating %.2fs: %v", elapsed, err)
	}
}

func (e *Engine) releaseHold() {
	e.hold = nil
	if !e.wantRunning {
		return
	}
	e.clock.Start()
	e.throttle.Reset()
	e.log.Debug("engine: first pour animation done, clock running")
}

func (e *Engine) onTransition(ev domain.TransitionEvent) {
	e.notes.Handle(e.loopCtx, ev)

	if ev.NewStatus != domain.StatusCurrent {
		return
	}
	c, err := e.seq.Begin(ev)
	if err != nil {
		e.log.Debug("engine: step %d animation skipped: %v", ev.StepIndex, err)
		return
	}
	e.lastAnim = c
}

// onStall holds the clock on the stalled queue's completion. The clock
// stays paused until a reset or seek clears the hold, so no later step
// starts while the displayed volume is stuck.
func (e *Engine) onStall(ev domain.TransitionEvent, phase domain.AnimationPhase, err error) {
	c := e.seq.Pending()
	if c == nil {
		return
	}
	e.hold = c
	e.clock.Pause()
	e.throttle.Reset()

	now := e.now()
	elapsed := e.clock.At(now)
	if e.session != nil {
		e.session.ElapsedSec = elapsed
	}
	e.log.Warn("engine: step %d stalled on %s at %.1fs, clock held: %v", ev.StepIndex, phase, elapsed, err)
	e.publish(now, elapsed)
}

func (e *Engine) onFinished() {
	e.notes.Finish(e.loopCtx)
	e.wantRunning = false
	e.clock.Pause()
	e.releaseWake()

	if e.session == nil {
		return
	}
	e.session.Status = domain.SessionCompleted
	e.session.ElapsedSec = e.clock.Elapsed()
	zl := e.log.Zerolog()
	zl.Info().
		Str("session", e.session.ID).
		Str("recipe", e.session.RecipeID).
		Float64("beans_g", e.session.Params.BeansGrams).
		Str("flavor", string(e.session.Params.Flavor)).
		Str("strength", string(e.session.Params.Strength)).
		Int("water_ml", e.volumeAt(e.session.ElapsedSec)).
		Float64("elapsed_s", e.session.ElapsedSec).
		Msg("brew finished")
	if err := e.persist(e.loopCtx); err != nil {
		e.log.Error("engine: %v", err)
	}
}

func (e *Engine) acquireWake(ctx context.Context) {
	if e.wake == nil || e.wakeHeld {
		return
	}
	if err := e.wake.Acquire(ctx); err != nil {
		e.log.Warn("engine: acquiring wake lock: %v", err)
		return
	}
	e.wakeHeld = true
}

func (e *Engine) releaseWake() {
	if e.wake == nil || !e.wakeHeld {
		return
	}
	e.wakeHeld = false
	if err := e.wake.Release(); err != nil {
		e.log.Warn("engine: releasing wake lock: %v", err)
	}
}

// abandon marks the open session abandoned unless it already finished.
func (e *Engine) abandon(ctx context.Context) {
	if e.session == nil || e.session.Status == domain.SessionCompleted {
		return
	}
	e.releaseWake()
	e.session.Status = domain.SessionAbandoned
	e.session.ElapsedSec = e.clock.Elapsed()
	if err := e.persist(ctx); err != nil {
		e.log.Error("engine: %v", err)
	}
	e.log.Info("session %s abandoned", e.session.ID)
}

func (e *Engine) persist(ctx context.Context) error {
	if e.session == nil {
		return nil
	}
	e.session.UpdatedAt = e.now()
	s := *e.session
	if err := e.store.Save(ctx, &s); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// applyLocale picks the recipe locale closest to the user's and pushes the
// settings to the notification coordinator.
func (e *Engine) applyLocale() {
	e.locale = e.settings.Locale
	if e.def != nil {
		e.locale = recipe.MatchLocale(e.settings.Locale, recipe.Locales(e.def))
	}
	s := e.settings
	s.Locale = e.locale
	e.notes.SetSettings(s)
}

// volumeAt returns the cumulative volume poured by sec.
func (e *Engine) volumeAt(sec float64) int {
	v := 0
	for _, s := range e.status.Steps() {
		if s.TimeSec > sec {
			break
		}
		v = s.CumulativeVolumeMl
	}
	return v
}

func withDefaults(def *domain.RecipeDefinition, p domain.BrewParams) domain.BrewParams {
	d := recipe.DefaultParams(def)
	if p.BeansGrams == 0 {
		p.BeansGrams = d.BeansGrams
	}
	if p.Flavor == "" {
		p.Flavor = d.Flavor
	}
	if p.Strength == "" {
		p.Strength = d.Strength
	}
	return p
}

func generate(def *domain.RecipeDefinition, p domain.BrewParams) ([]domain.CalculatedStep, error) {
	if err := recipe.ValidateParams(def, p); err != nil {
		return nil, err
	}
	steps, err := recipe.Generate(def, p)
	if err != nil {
		return nil, fmt.Errorf("generating schedule: %w", err)
	}
	return steps, nil
}
