package domain

import (
	"context"
	"time"
)

// Session represents one operator's browser session. It carries no
// authentication state itself; the per-subsystem flags live in a
// SessionRepository keyed by the session ID. Sessions are created implicitly
// on first access and have no expiry.
type Session struct {
	ID        string
	CreatedAt time.Time
}

// SessionRepository stores per-session, per-subsystem authentication flags.
// A flag that was never set reads as false.
type SessionRepository interface {
	// SetAuthenticated records the authentication flag for one subsystem.
	SetAuthenticated(ctx context.Context, sessionID string, subsystem SubsystemID, authenticated bool) error

	// IsAuthenticated reads the flag for one subsystem.
	IsAuthenticated(ctx context.Context, sessionID string, subsystem SubsystemID) (bool, error)

	// ActiveSubsystems returns the flag for every known subsystem.
	ActiveSubsystems(ctx context.Context, sessionID string) (map[SubsystemID]bool, error)

	// ClearAll resets every subsystem's flag for the session.
	ClearAll(ctx context.Context, sessionID string) error
}
