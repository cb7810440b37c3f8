package engine

import "github.com/google/uuid"

// newSessionID creates a random session ID.
func newSessionID() string {
	return uuid.NewString()
}
