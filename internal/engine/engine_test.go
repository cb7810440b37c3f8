package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/recipe"
	"github.com/hammamikhairi/ottobrew/internal/storage"
)

// fakeTime is a manually advanced time source. With step set, every read
// also moves it forward by step.
type fakeTime struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)}
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.t
	f.t = f.t.Add(f.step)
	return now
}

func (f *fakeTime) SetStep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = d
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// mockPlayer holds animation callbacks until released. With instant set it
// completes every phase before Play returns; with async set it completes
// them on another goroutine.
type mockPlayer struct {
	mu      sync.Mutex
	instant bool
	async   bool
	played  []domain.AnimationPhase
	pending []func(error)
}

func (m *mockPlayer) Play(phase domain.AnimationPhase, done func(error)) {
	m.mu.Lock()
	m.played = append(m.played, phase)
	switch {
	case m.instant:
		m.mu.Unlock()
		done(nil)
		return
	case m.async:
		m.mu.Unlock()
		go done(nil)
		return
	}
	m.pending = append(m.pending, done)
	m.mu.Unlock()
}

func (m *mockPlayer) finishAll() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		done := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		done(nil)
	}
}

// fail completes the oldest outstanding phase with err.
func (m *mockPlayer) fail(err error) {
	m.mu.Lock()
	done := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	done(err)
}

func (m *mockPlayer) outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *mockPlayer) phases() []domain.AnimationPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AnimationPhase(nil), m.played...)
}

type mockCues struct {
	mu       sync.Mutex
	requests []domain.CueRequest
}

func (m *mockCues) Play(_ context.Context, req domain.CueRequest, done func(error)) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	done(nil)
}

func (m *mockCues) kinds() []domain.CueKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CueKind
	for _, r := range m.requests {
		out = append(out, r.Kind)
	}
	return out
}

type mockWake struct {
	acquired, released int
	err                error
}

func (m *mockWake) Acquire(context.Context) error {
	m.acquired++
	return m.err
}

func (m *mockWake) Release() error {
	m.released++
	return nil
}

type harness struct {
	eng    *Engine
	ft     *fakeTime
	player *mockPlayer
	cues   *mockCues
	wake   *mockWake
	store  *storage.MemoryStore
}

func setupEngine(t *testing.T, opts ...Option) (*harness, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	h := &harness{
		ft:     newFakeTime(),
		player: &mockPlayer{},
		cues:   &mockCues{},
		wake:   &mockWake{},
		store:  storage.NewMemoryStore(log),
	}
	base := []Option{
		WithNow(h.ft.Now),
		WithAnimationPlayer(h.player),
		WithCuePlayer(h.cues),
		WithWakeLock(h.wake),
		WithRecomputeInterval(0),
		WithCountTiming(0, 0),
		WithSettings(domain.Settings{Locale: "ja-JP", NotificationMode: domain.NotifySound}),
	}
	h.eng = New(recipe.NewMemorySource(log), h.store, log, append(base, opts...)...)
	return h, context.Background()
}

// advanceTo moves fake time so the running clock reads sec, then runs a frame.
func (h *harness) advanceTo(t *testing.T, sec float64) {
	t.Helper()
	now := h.eng.clock.Elapsed()
	require.True(t, h.eng.clock.Running(), "clock must be running")
	h.ft.Advance(time.Duration((sec - now) * float64(time.Second)))
	h.eng.frame()
}

func neutralMedium() domain.BrewParams {
	return domain.BrewParams{BeansGrams: 20, Flavor: domain.FlavorNeutral, Strength: domain.StrengthMedium}
}

func TestOpenSession(t *testing.T) {
	h, ctx := setupEngine(t)

	tests := []struct {
		name     string
		recipeID string
		params   domain.BrewParams
		wantErr  error
	}{
		{"valid recipe", "new-hybrid", neutralMedium(), nil},
		{"recipe defaults", "four-six", domain.BrewParams{}, nil},
		{"unknown recipe", "nonexistent", domain.BrewParams{}, domain.ErrNotFound},
		{"beans out of range", "new-hybrid", domain.BrewParams{BeansGrams: 2}, domain.ErrInvalidParams},
		{"flavor not offered", "five-pour", domain.BrewParams{Flavor: domain.FlavorSour}, domain.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := h.eng.Open(ctx, tt.recipeID, tt.params)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.ID)
			assert.Equal(t, domain.SessionPaused, session.Status)
			assert.NotZero(t, session.Params.BeansGrams)

			stored, err := h.store.Load(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.recipeID, stored.RecipeID)

			snap := h.eng.Snapshot()
			assert.Equal(t, session.ID, snap.SessionID)
			assert.Equal(t, "ja", snap.Locale)
			assert.False(t, snap.Running)
			assert.Equal(t, -1, snap.Current)
		})
	}
}

func TestOpenAbandonsPreviousSession(t *testing.T) {
	h, ctx := setupEngine(t)

	first, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)
	_, err = h.eng.Open(ctx, "four-six", domain.BrewParams{})
	require.NoError(t, err)

	stored, err := h.store.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAbandoned, stored.Status)
}

func TestStartWithoutSession(t *testing.T) {
	h, ctx := setupEngine(t)
	assert.ErrorIs(t, h.eng.Start(ctx), domain.ErrNoSession)
	assert.NoError(t, h.eng.Pause(ctx))
	assert.NoError(t, h.eng.Reset(ctx))
}

func TestFirstPourHoldsClock(t *testing.T) {
	h, ctx := setupEngine(t)
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	assert.Equal(t, []domain.AnimationPhase{domain.PhaseSwitchOpen}, h.player.phases())
	assert.Equal(t, 1, h.wake.acquired)

	// Time passes while the bloom animation plays; the clock stays at zero.
	h.ft.Advance(3 * time.Second)
	h.eng.frame()
	snap := h.eng.Snapshot()
	assert.True(t, snap.Holding)
	assert.False(t, snap.Running)
	assert.Zero(t, snap.ElapsedSec)
	assert.Equal(t, 0, snap.Current)

	h.player.finishAll() // switch_open, then pour
	h.player.finishAll()
	h.eng.frame()

	snap = h.eng.Snapshot()
	assert.False(t, snap.Holding)
	assert.True(t, snap.Running)
	assert.Equal(t, 60, snap.Displayed)

	h.ft.Advance(10 * time.Second)
	assert.InDelta(t, 10, h.eng.clock.Elapsed(), 1e-9)
}

func TestFullBrew(t *testing.T) {
	h, ctx := setupEngine(t)
	h.player.instant = true

	session, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	// The first pour drained before Start returned, so nothing holds.
	require.NoError(t, h.eng.Start(ctx))
	require.True(t, h.eng.clock.Running())

	for sec := 0.1; sec <= 215; sec += 0.1 {
		h.advanceToOrStop(t, sec)
	}

	snap := h.eng.Snapshot()
	assert.True(t, snap.Finished)
	assert.False(t, snap.Running)
	assert.Equal(t, domain.SessionCompleted, snap.Status)
	for i, s := range snap.Steps {
		assert.Equal(t, domain.StatusCompleted, s.Status, "step %d", i)
	}

	// Five next cues (steps 1..5) and one finish.
	kinds := h.cues.kinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, domain.CueFinish, kinds[len(kinds)-1])
	next := 0
	for _, k := range kinds {
		if k == domain.CueNextStep {
			next++
		}
	}
	assert.Equal(t, 5, next)

	stored, err := h.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, stored.Status)
	assert.Equal(t, h.wake.acquired, h.wake.released)

	assert.ErrorIs(t, h.eng.Start(ctx), domain.ErrSessionFinished)
}

// advanceToOrStop is advanceTo that tolerates the clock having stopped at
// the finish.
func (h *harness) advanceToOrStop(t *testing.T, sec float64) {
	t.Helper()
	if !h.eng.clock.Running() {
		return
	}
	h.advanceTo(t, sec)
}

func TestPauseResume(t *testing.T) {
	h, ctx := setupEngine(t)
	session, err := h.eng.Open(ctx, "four-six", domain.BrewParams{})
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	h.player.finishAll()
	h.player.finishAll()
	h.eng.frame()
	h.advanceTo(t, 20)

	require.NoError(t, h.eng.Pause(ctx))
	h.ft.Advance(time.Minute)
	h.eng.frame()
	assert.InDelta(t, 20, h.eng.Snapshot().ElapsedSec, 1e-9)

	stored, err := h.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, stored.Status)
	assert.InDelta(t, 20, stored.ElapsedSec, 1e-9)

	require.NoError(t, h.eng.Start(ctx))
	assert.Len(t, h.player.phases(), 1, "resuming mid-brew must not replay the first pour")
	h.advanceTo(t, 25)
	assert.InDelta(t, 25, h.eng.Snapshot().ElapsedSec, 1e-9)
}

func TestSnapshotSharesTickReading(t *testing.T) {
	h, ctx := setupEngine(t)
	h.player.instant = true
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)
	require.NoError(t, h.eng.Start(ctx))
	require.True(t, h.eng.clock.Running())

	// Time moves on every read, so a second reading within one frame would
	// land later than the one the statuses were derived from.
	h.ft.SetStep(10 * time.Millisecond)

	checked := 0
	for h.eng.clock.Running() {
		h.ft.Advance(3 * time.Millisecond)
		h.eng.frame()

		snap := h.eng.Snapshot()
		cur, ok := snap.CurrentStep()
		if !ok || snap.Finished {
			continue
		}
		checked++
		require.LessOrEqual(t, cur.TimeSec, snap.ElapsedSec, "step %d current before its time", snap.Current)
		if next := snap.Current + 1; next < len(snap.Steps) {
			require.Less(t, snap.ElapsedSec, snap.Steps[next].TimeSec,
				"elapsed %.3fs reached step %d while step %d is still current", snap.ElapsedSec, next, snap.Current)
		}
	}
	assert.Greater(t, checked, 0)
	assert.True(t, h.eng.Snapshot().Finished)
}

func TestMidBrewStallHoldsClock(t *testing.T) {
	h, ctx := setupEngine(t)
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	h.player.finishAll()
	h.eng.frame()
	steps := h.eng.Snapshot().Steps

	h.advanceTo(t, steps[1].TimeSec+0.5)
	h.player.finishAll()
	h.advanceTo(t, steps[2].TimeSec+0.5)
	require.Equal(t, 1, h.player.outstanding())

	h.player.fail(errors.New("asset missing"))

	snap := h.eng.Snapshot()
	assert.True(t, snap.Stalled)
	assert.True(t, snap.Holding)
	assert.False(t, snap.Running)
	assert.Equal(t, 2, snap.Current)
	stalledAt := snap.ElapsedSec
	assert.InDelta(t, steps[2].TimeSec+0.5, stalledAt, 1e-6)

	// Neither time nor a pause and resume moves the brew past the stall.
	h.ft.Advance(5 * time.Minute)
	h.eng.frame()
	require.NoError(t, h.eng.Pause(ctx))
	require.NoError(t, h.eng.Start(ctx))
	h.ft.Advance(time.Minute)
	h.eng.frame()

	snap = h.eng.Snapshot()
	assert.False(t, snap.Running)
	assert.False(t, snap.Finished)
	assert.InDelta(t, stalledAt, snap.ElapsedSec, 1e-9)
	assert.Equal(t, 2, snap.Current)
	for i := 3; i < len(snap.Steps); i++ {
		assert.NotEqual(t, domain.StatusCurrent, snap.Steps[i].Status, "step %d", i)
		assert.NotEqual(t, domain.StatusCompleted, snap.Steps[i].Status, "step %d", i)
	}
	assert.NotContains(t, h.cues.kinds(), domain.CueFinish)

	// Seeking clears the stall and the clock the user started runs again.
	require.NoError(t, h.eng.Seek(ctx, steps[2].TimeSec))
	snap = h.eng.Snapshot()
	assert.False(t, snap.Stalled)
	assert.False(t, snap.Holding)
	assert.True(t, snap.Running)
}

func TestTransitionWhileDrainingIsDropped(t *testing.T) {
	h, ctx := setupEngine(t)
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	h.player.finishAll()
	h.eng.frame()
	steps := h.eng.Snapshot().Steps

	// Step 1's queue is still playing when step 2 comes due.
	h.advanceTo(t, steps[1].TimeSec+0.5)
	played := len(h.player.phases())
	h.advanceTo(t, steps[2].TimeSec+0.5)

	snap := h.eng.Snapshot()
	assert.Len(t, h.player.phases(), played, "step 2 must not start a second queue")
	assert.True(t, snap.Running, "a dropped animation does not stop the clock")
	assert.True(t, snap.Animating)
	assert.False(t, snap.Stalled)
	assert.Equal(t, 2, snap.Current)
	assert.Equal(t, domain.StatusCompleted, snap.Steps[1].Status)

	// Once step 1 drains, the next transition animates again.
	h.player.finishAll()
	h.eng.frame()
	assert.False(t, h.eng.Snapshot().Animating)

	played = len(h.player.phases())
	h.advanceTo(t, steps[3].TimeSec+0.5)
	assert.Greater(t, len(h.player.phases()), played)
	assert.Equal(t, 3, h.eng.Snapshot().Current)
}

func TestPauseDuringFirstPourHold(t *testing.T) {
	h, ctx := setupEngine(t)
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	require.NoError(t, h.eng.Pause(ctx))

	// The animation is not cancelled and finishes while paused.
	h.player.finishAll()
	h.player.finishAll()
	h.eng.frame()
	assert.False(t, h.eng.clock.Running())

	require.NoError(t, h.eng.Start(ctx))
	assert.True(t, h.eng.clock.Running())
}

func TestResetReturnsToStart(t *testing.T) {
	h, ctx := setupEngine(t)
	_, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	h.player.finishAll()
	h.player.finishAll()
	h.eng.frame()
	h.advanceTo(t, 95)

	require.NoError(t, h.eng.Reset(ctx))
	snap := h.eng.Snapshot()
	assert.Zero(t, snap.ElapsedSec)
	assert.False(t, snap.Running)
	assert.False(t, snap.Animating)
	for _, s := range snap.Steps {
		assert.Equal(t, domain.StatusUpcoming, s.Status)
	}
	assert.Equal(t, 1, h.wake.released)

	// Starting again replays the first pour hold.
	before := len(h.player.phases())
	require.NoError(t, h.eng.Start(ctx))
	assert.True(t, h.eng.Snapshot().Holding)
	assert.Len(t, h.player.phases(), before+1)
}

func TestSeekAndResume(t *testing.T) {
	h, ctx := setupEngine(t)
	session, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Seek(ctx, 100))
	snap := h.eng.Snapshot()
	assert.Equal(t, 2, snap.Current)
	assert.Equal(t, 210, snap.Displayed)
	assert.False(t, snap.Running)
	assert.Empty(t, h.player.phases(), "seeking raises no transitions")

	// A second engine picks the session up from the store.
	log := logger.New(logger.LevelOff, nil)
	other := New(recipe.NewMemorySource(log), h.store, log, WithNow(h.ft.Now), WithRecomputeInterval(0))
	resumed, err := other.Resume(ctx, session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, resumed.ElapsedSec, 1e-9)
	assert.Equal(t, 2, other.Snapshot().Current)

	require.NoError(t, other.Start(ctx))
	assert.True(t, other.clock.Running(), "no hold when resuming mid-brew")
}

func TestSeekPastFinish(t *testing.T) {
	h, ctx := setupEngine(t)
	session, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	require.NoError(t, h.eng.Seek(ctx, 500))
	assert.True(t, h.eng.Snapshot().Finished)

	stored, err := h.store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, stored.Status)

	_, err = h.eng.Resume(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionFinished)
}

func TestWakeLockFailureIsIgnored(t *testing.T) {
	h, ctx := setupEngine(t)
	h.wake.err = errors.New("denied")
	_, err := h.eng.Open(ctx, "five-pour", domain.BrewParams{})
	require.NoError(t, err)

	require.NoError(t, h.eng.Start(ctx))
	assert.Equal(t, 1, h.wake.acquired)
}

func TestSchedule(t *testing.T) {
	h, ctx := setupEngine(t)

	steps, p, err := h.eng.Schedule(ctx, "new-hybrid", domain.BrewParams{Flavor: domain.FlavorSour})
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.BeansGrams)
	assert.Equal(t, domain.StrengthMedium, p.Strength)
	require.Len(t, steps, 6)
	assert.Equal(t, 70, steps[0].CumulativeVolumeMl)
	assert.Equal(t, 120, steps[1].CumulativeVolumeMl)
}

func TestRunLoop(t *testing.T) {
	h, ctx := setupEngine(t, WithFrameInterval(time.Millisecond))
	h.player.async = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var seen int
	h.eng.OnSnapshot(func(Snapshot) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	session, err := h.eng.Open(ctx, "new-hybrid", neutralMedium())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- h.eng.Run(ctx) }()

	require.NoError(t, h.eng.Start(ctx))
	require.Eventually(t, func() bool {
		return h.eng.Snapshot().Running
	}, 2*time.Second, time.Millisecond, "hold should release once the first pour drains")

	h.ft.Advance(36 * time.Second)
	require.Eventually(t, func() bool {
		snap := h.eng.Snapshot()
		return len(snap.Steps) > 1 && snap.Steps[1].Status == domain.StatusNext
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-errc)

	mu.Lock()
	assert.Greater(t, seen, 0)
	mu.Unlock()

	// Shutdown pauses and saves the running session.
	stored, err := h.store.Load(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, stored.Status)
	assert.InDelta(t, 36, stored.ElapsedSec, 1e-6)

	assert.ErrorIs(t, h.eng.Start(context.Background()), ErrStopped)
}
