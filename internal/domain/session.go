package domain

import "time"

// Session is a persisted brewing session: which recipe, with which
// parameters, and how far the clock had run when last saved.
type Session struct {
	ID         string
	RecipeID   string
	RecipeName string
	Params     BrewParams
	ElapsedSec float64
	Status     SessionStatus
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// SessionStatus tracks the lifecycle of a brewing session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionPaused
	SessionCompleted
	SessionAbandoned
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionPaused:
		return "paused"
	case SessionCompleted:
		return "completed"
	case SessionAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ParseSessionStatus converts a status name back to a SessionStatus.
func ParseSessionStatus(s string) SessionStatus {
	switch s {
	case "paused":
		return SessionPaused
	case "completed":
		return SessionCompleted
	case "abandoned":
		return SessionAbandoned
	default:
		return SessionActive
	}
}
