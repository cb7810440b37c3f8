package domain

import (
	"context"
	"time"
)

// RecipeSource provides recipe definitions. Implementations can be
// in-memory (embedded YAML), directory-backed, or remote.
type RecipeSource interface {
	List(ctx context.Context) ([]RecipeSummary, error)
	Get(ctx context.Context, id string) (*RecipeDefinition, error)
}

// SessionStore persists brewing sessions. Implementations can be in-memory
// or SQLite.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*Session, error)
	List(ctx context.Context, limit int) ([]*Session, error)
}

// AnimationPlayer presents one animation phase. Play must return promptly
// and call done exactly once when the phase has finished presenting, from
// any goroutine. A non-nil error means the asset failed.
type AnimationPlayer interface {
	Play(phase AnimationPhase, done func(err error))
}

// CuePlayer plays an acoustic cue. Play must return promptly and call done
// once playback completes or fails.
type CuePlayer interface {
	Play(ctx context.Context, req CueRequest, done func(err error))
}

// Vibrator requests device vibration with an on/off pattern.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// WakeLock keeps the screen awake while brewing.
type WakeLock interface {
	Acquire(ctx context.Context) error
	Release() error
}

// Notifier delivers messages to the user. Implementations can write to
// the terminal UI or stdout.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
