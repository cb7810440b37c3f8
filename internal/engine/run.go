package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/ottobrew/internal/domain"
)

// Run drives the frame loop until ctx is cancelled. Blocks. On shutdown a
// running session is paused and saved so it can be resumed later.
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(stateIdle, stateLooping) {
		return fmt.Errorf("brew engine: Run called twice")
	}
	defer func() {
		e.state.Store(stateStopped)
		close(e.done)
	}()

	e.loopCtx = ctx
	frames := time.NewTicker(e.frameInterval)
	defer frames.Stop()

	e.log.Info("brew loop started (frame=%s, recompute=%s, lead=%.0fs)", e.frameInterval, e.recomputeInterval, e.lead)

	for {
		var hold <-chan struct{}
		if e.hold != nil {
			hold = e.hold.Done()
		}

		select {
		case <-ctx.Done():
			e.shutdown(context.WithoutCancel(ctx))
			e.log.Info("brew loop stopped")
			return nil
		case fn := <-e.cmds:
			fn()
		case <-hold:
			e.releaseHold()
		case <-frames.C:
			e.frame()
		}
	}
}

func (e *Engine) shutdown(ctx context.Context) {
	e.releaseWake()
	if e.session == nil || e.session.Status != domain.SessionActive {
		return
	}
	e.wantRunning = false
	e.clock.Pause()
	e.session.Status = domain.SessionPaused
	e.session.ElapsedSec = e.clock.Elapsed()
	if err := e.persist(ctx); err != nil {
		e.log.Error("engine: %v", err)
	}
}

// do runs fn on the loop and waits for its result, or runs it inline when
// the loop has not been started.
func (e *Engine) do(fn func() error) error {
	switch e.state.Load() {
	case stateIdle:
		return fn()
	case stateStopped:
		return ErrStopped
	}

	res := make(chan error, 1)
	select {
	case e.cmds <- func() { res <- fn() }:
	case <-e.done:
		return ErrStopped
	}
	select {
	case err := <-res:
		return err
	case <-e.done:
		return ErrStopped
	}
}

// post hands a collaborator callback to the loop without waiting. Callbacks
// arriving after the loop has stopped are dropped.
func (e *Engine) post(fn func()) {
	switch e.state.Load() {
	case stateIdle:
		fn()
		return
	case stateStopped:
		return
	}
	select {
	case e.cmds <- fn:
	case <-e.done:
	}
}
