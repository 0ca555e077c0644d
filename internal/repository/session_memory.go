package repository

import (
	"context"
	"sync"

	"github.com/yourorg/hrstage/internal/domain"
)

// MemorySessionRepository keeps authentication flags in process memory. This
// is the default store: requests from one browser session are served by one
// instance, and flags deliberately vanish on restart.
type MemorySessionRepository struct {
	mu    sync.RWMutex
	flags map[string]map[domain.SubsystemID]bool
}

// NewMemorySessionRepository creates an empty in-memory session repository
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{flags: map[string]map[domain.SubsystemID]bool{}}
}

// SetAuthenticated records the flag for one subsystem
func (r *MemorySessionRepository) SetAuthenticated(ctx context.Context, sessionID string, subsystem domain.SubsystemID, authenticated bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	flags, ok := r.flags[sessionID]
	if !ok {
		flags = map[domain.SubsystemID]bool{}
		r.flags[sessionID] = flags
	}
	flags[subsystem] = authenticated
	return nil
}

// IsAuthenticated reads the flag for one subsystem; never-set reads as false
func (r *MemorySessionRepository) IsAuthenticated(ctx context.Context, sessionID string, subsystem domain.SubsystemID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[sessionID][subsystem], nil
}

// ActiveSubsystems returns the flag for every known subsystem
func (r *MemorySessionRepository) ActiveSubsystems(ctx context.Context, sessionID string) (map[domain.SubsystemID]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[domain.SubsystemID]bool{}
	for _, subsystem := range domain.AllSubsystems() {
		out[subsystem] = r.flags[sessionID][subsystem]
	}
	return out, nil
}

// ClearAll resets every subsystem's flag for the session
func (r *MemorySessionRepository) ClearAll(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flags, sessionID)
	return nil
}
