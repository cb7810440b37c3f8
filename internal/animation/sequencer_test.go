package animation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// mockPlayer records phases and holds their done callbacks until the test
// releases them.
type mockPlayer struct {
	played  []domain.AnimationPhase
	pending []func(error)
}

func (m *mockPlayer) Play(phase domain.AnimationPhase, done func(error)) {
	m.played = append(m.played, phase)
	m.pending = append(m.pending, done)
}

// finish completes the oldest outstanding phase.
func (m *mockPlayer) finish(err error) {
	done := m.pending[0]
	m.pending = m.pending[1:]
	done(err)
}

type fakeTime struct{ t time.Time }

func (f *fakeTime) Now() time.Time          { return f.t }
func (f *fakeTime) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newSequencer(p domain.AnimationPlayer, ft *fakeTime) *Sequencer {
	return New(p, logger.New(logger.LevelOff, nil), WithNow(ft.Now))
}

func TestExpand(t *testing.T) {
	tests := []struct {
		action   domain.ActionType
		from, to int
		want     []domain.AnimationPhase
	}{
		{domain.ActionSwitchClosePour, 120, 210, []domain.AnimationPhase{domain.PhaseSwitchClose, domain.PhasePour}},
		{domain.ActionSwitchOpenPour, 0, 60, []domain.AnimationPhase{domain.PhaseSwitchOpen, domain.PhasePour}},
		{domain.ActionPourCool, 210, 300, []domain.AnimationPhase{domain.PhasePour, domain.PhaseCool}},
		{domain.ActionPour, 60, 120, []domain.AnimationPhase{domain.PhasePour}},
		{domain.ActionCool, 300, 300, []domain.AnimationPhase{domain.PhaseCool}},
		{domain.ActionSwitchOpen, 300, 300, []domain.AnimationPhase{domain.PhaseSwitchOpen}},
		{domain.ActionSwitchClose, 300, 300, []domain.AnimationPhase{domain.PhaseSwitchClose}},
		{domain.ActionNone, 300, 300, nil},
		{domain.ActionNone, 100, 150, []domain.AnimationPhase{domain.PhasePour}},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.action, tt.from, tt.to))
		})
	}
}

func TestSequencerPlaysPhasesInOrder(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	c, err := s.Begin(domain.TransitionEvent{StepIndex: 2, ActionType: domain.ActionSwitchClosePour, FromVolume: 120, ToVolume: 210})
	require.NoError(t, err)

	// Only the first phase has been requested.
	require.Equal(t, []domain.AnimationPhase{domain.PhaseSwitchClose}, p.played)
	assert.False(t, c.Fired())
	assert.True(t, s.Busy())

	p.finish(nil)
	require.Equal(t, []domain.AnimationPhase{domain.PhaseSwitchClose, domain.PhasePour}, p.played)
	assert.False(t, c.Fired(), "must not fire before the last phase completes")

	p.finish(nil)
	assert.True(t, c.Fired())
	assert.False(t, s.Busy())

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSequencerCompletionFiresOnce(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	c, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionPour, FromVolume: 60, ToVolume: 120})
	require.NoError(t, err)

	done := p.pending[0]
	done(nil)
	// A misbehaving player signalling twice must not advance or panic.
	done(nil)
	assert.True(t, c.Fired())
	assert.Len(t, p.played, 1)
}

func TestSequencerRejectsWhileBusy(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	_, err := s.Begin(domain.TransitionEvent{StepIndex: 1, ActionType: domain.ActionPour, FromVolume: 60, ToVolume: 120})
	require.NoError(t, err)

	c, err := s.Begin(domain.TransitionEvent{StepIndex: 2, ActionType: domain.ActionCool})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, c)
	assert.Len(t, p.played, 1, "rejected request must not be queued")

	p.finish(nil)
	assert.Empty(t, p.pending)

	_, err = s.Begin(domain.TransitionEvent{StepIndex: 2, ActionType: domain.ActionCool})
	assert.NoError(t, err)
}

func TestSequencerEmptyQueueCompletesImmediately(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	c, err := s.Begin(domain.TransitionEvent{StepIndex: 5, ActionType: domain.ActionNone, FromVolume: 300, ToVolume: 300})
	require.NoError(t, err)
	assert.True(t, c.Fired())
	assert.False(t, s.Busy())
	assert.Empty(t, p.played)
	assert.Equal(t, 300, s.Displayed(ft.Now()))
}

func TestSequencerNilPlayerCompletesImmediately(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	s := newSequencer(nil, ft)

	c, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionPourCool, FromVolume: 0, ToVolume: 60})
	require.NoError(t, err)
	assert.True(t, c.Fired())
}

func TestSequencerPourCounter(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	_, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionSwitchOpenPour, FromVolume: 0, ToVolume: 60})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Displayed(ft.Now()))

	// The counter belongs to the pour phase, not the switch phase.
	ft.Advance(2 * time.Second)
	assert.Equal(t, 0, s.Displayed(ft.Now()))
	p.finish(nil)

	ft.Advance(400 * time.Millisecond)
	assert.Equal(t, 0, s.Displayed(ft.Now()), "counter waits for its delay")

	ft.Advance(600 * time.Millisecond) // halfway through the count
	assert.Equal(t, 30, s.Displayed(ft.Now()))

	// The pour phase may finish before the counter; the counter keeps going.
	p.finish(nil)
	assert.False(t, s.Busy())
	assert.Equal(t, 30, s.Displayed(ft.Now()))

	ft.Advance(time.Second)
	assert.Equal(t, 60, s.Displayed(ft.Now()), "counter snaps to the target")
}

func TestCounterValue(t *testing.T) {
	start := time.Unix(100, 0)
	c := Counter{From: 120, To: 210, Start: start, Duration: time.Second}

	tests := []struct {
		at   time.Duration
		want int
	}{
		{-time.Millisecond, 120},
		{0, 120},
		{333 * time.Millisecond, 150},
		{500 * time.Millisecond, 165},
		{999 * time.Millisecond, 210},
		{time.Second, 210},
		{time.Hour, 210},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Value(start.Add(tt.at)), "at %s", tt.at)
	}
	assert.False(t, c.Done(start.Add(999*time.Millisecond)))
	assert.True(t, c.Done(start.Add(time.Second)))
}

func TestSequencerStallsOnPlayerFailure(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	c, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionPourCool, FromVolume: 210, ToVolume: 300})
	require.NoError(t, err)

	p.finish(errors.New("asset missing"))
	assert.True(t, s.Stalled())
	assert.True(t, s.Busy())
	assert.False(t, c.Fired())
	assert.Len(t, p.played, 1, "a failed phase must not be skipped")

	ft.Advance(time.Minute)
	assert.Equal(t, time.Minute, s.PhaseAge(ft.Now()))

	_, err = s.Begin(domain.TransitionEvent{ActionType: domain.ActionSwitchOpen})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSequencerReportsStall(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}

	var stalls []domain.AnimationPhase
	var gotStep int
	var gotErr error
	s := New(p, logger.New(logger.LevelOff, nil),
		WithNow(ft.Now),
		WithOnStall(func(ev domain.TransitionEvent, phase domain.AnimationPhase, err error) {
			stalls = append(stalls, phase)
			gotStep = ev.StepIndex
			gotErr = err
		}),
	)

	c, err := s.Begin(domain.TransitionEvent{StepIndex: 2, ActionType: domain.ActionSwitchClosePour, FromVolume: 120, ToVolume: 210})
	require.NoError(t, err)

	p.finish(nil)
	assert.Empty(t, stalls, "a completed phase is not a stall")

	missing := errors.New("asset missing")
	p.finish(missing)
	assert.Equal(t, []domain.AnimationPhase{domain.PhasePour}, stalls)
	assert.Equal(t, 2, gotStep)
	assert.ErrorIs(t, gotErr, missing)
	assert.Same(t, c, s.Pending(), "the stalled queue stays pending")

	s.Reset()
	assert.Nil(t, s.Pending())
}

func TestSequencerResetIgnoresLateCallbacks(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}
	s := newSequencer(p, ft)

	old, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionSwitchClosePour, FromVolume: 120, ToVolume: 210})
	require.NoError(t, err)

	s.Reset()
	assert.False(t, s.Busy())
	assert.Equal(t, 0, s.Displayed(ft.Now()))

	c, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionCool, FromVolume: 300, ToVolume: 300})
	require.NoError(t, err)

	// The abandoned queue's callback arrives late.
	p.finish(nil)
	assert.False(t, old.Fired())
	assert.False(t, c.Fired())
	assert.Equal(t, []domain.AnimationPhase{domain.PhaseSwitchClose, domain.PhaseCool}, p.played)

	p.finish(nil)
	assert.True(t, c.Fired())
}

func TestSequencerDispatchesCallbacks(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	p := &mockPlayer{}

	var queued []func()
	s := New(p, logger.New(logger.LevelOff, nil),
		WithNow(ft.Now),
		WithDispatch(func(fn func()) { queued = append(queued, fn) }),
	)

	c, err := s.Begin(domain.TransitionEvent{ActionType: domain.ActionPour, FromVolume: 0, ToVolume: 60})
	require.NoError(t, err)

	p.finish(nil)
	assert.False(t, c.Fired(), "callback must run on the owner, not the player goroutine")
	require.Len(t, queued, 1)

	queued[0]()
	assert.True(t, c.Fired())
}
