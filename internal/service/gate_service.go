package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/observability/metrics"
	"github.com/yourorg/hrstage/internal/security/auth"
)

// SessionUpdate is pushed to watchers whenever a session's authentication
// state changes. Active maps every known subsystem to its flag.
type SessionUpdate struct {
	SessionID string                      `json:"sessionId"`
	Active    map[domain.SubsystemID]bool `json:"active"`
}

// GateService is the per-subsystem authenticated-session state machine. Each
// (session, subsystem) pair is either LoggedOut (initial) or LoggedIn; a
// successful Authenticate moves it to LoggedIn, Logout and LogoutAll move it
// back. Failed attempts leave the state unchanged. Authenticating one
// subsystem never touches another's flag.
type GateService struct {
	sessions domain.SessionRepository
	creds    *auth.CredentialResolver
	logger   *slog.Logger

	mu       sync.Mutex
	watchers map[chan SessionUpdate]struct{}
}

// NewGateService creates a new session gate
func NewGateService(sessions domain.SessionRepository, creds *auth.CredentialResolver, logger *slog.Logger) *GateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateService{
		sessions: sessions,
		creds:    creds,
		logger:   logger,
		watchers: map[chan SessionUpdate]struct{}{},
	}
}

// IsAuthenticated reports whether the session holds admin access to the
// subsystem. Pure query; a repository failure reads as not authenticated.
func (g *GateService) IsAuthenticated(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID) bool {
	authenticated, err := g.sessions.IsAuthenticated(ctx, session.ID, subsystem)
	if err != nil {
		g.logger.Warn("session flag read failed, treating as unauthenticated",
			slog.String("session_id", session.ID),
			slog.String("subsystem", string(subsystem)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return authenticated
}

// ResolveCredential returns the secret the subsystem's gate compares
// against. Never fails; lookup failures fall through to the master
// credential and finally the fixed default.
func (g *GateService) ResolveCredential(subsystem domain.SubsystemID) string {
	return g.creds.Resolve(subsystem)
}

// Authenticate compares the attempted secret against the resolved credential.
// On match the session flag is set and true is returned; on mismatch the
// state is unchanged. Mismatches are reported as false, never as an error,
// so callers render an inline message.
func (g *GateService) Authenticate(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID, attempted string) bool {
	if !subsystem.Valid() {
		return false
	}

	if !auth.Verify(g.creds.Resolve(subsystem), attempted) {
		metrics.ObserveAuthAttempt(string(subsystem), "failure")
		g.logger.Warn("authentication failed",
			slog.String("session_id", session.ID),
			slog.String("subsystem", string(subsystem)),
		)
		return false
	}

	if err := g.sessions.SetAuthenticated(ctx, session.ID, subsystem, true); err != nil {
		metrics.ObserveAuthAttempt(string(subsystem), "error")
		g.logger.Error("failed to persist session flag",
			slog.String("session_id", session.ID),
			slog.String("subsystem", string(subsystem)),
			slog.String("error", err.Error()),
		)
		return false
	}

	metrics.ObserveAuthAttempt(string(subsystem), "success")
	metrics.IncrementActiveSessions(string(subsystem))
	g.logger.Info("admin authenticated",
		slog.String("session_id", session.ID),
		slog.String("subsystem", string(subsystem)),
	)
	g.notify(ctx, session)
	return true
}

// Logout clears the session's flag for one subsystem. Idempotent.
func (g *GateService) Logout(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID) error {
	wasActive := g.IsAuthenticated(ctx, session, subsystem)
	if err := g.sessions.SetAuthenticated(ctx, session.ID, subsystem, false); err != nil {
		return err
	}
	if wasActive {
		metrics.DecrementActiveSessions(string(subsystem))
	}
	g.logger.Info("admin logged out",
		slog.String("session_id", session.ID),
		slog.String("subsystem", string(subsystem)),
	)
	g.notify(ctx, session)
	return nil
}

// LogoutAll clears every subsystem's flag for the session in one call
func (g *GateService) LogoutAll(ctx context.Context, session *domain.Session) error {
	active, err := g.sessions.ActiveSubsystems(ctx, session.ID)
	if err != nil {
		return err
	}
	if err := g.sessions.ClearAll(ctx, session.ID); err != nil {
		return err
	}
	for subsystem, wasActive := range active {
		if wasActive {
			metrics.DecrementActiveSessions(string(subsystem))
		}
	}
	g.logger.Info("admin logged out of all subsystems", slog.String("session_id", session.ID))
	g.notify(ctx, session)
	return nil
}

// ActiveSessions returns the authentication flag for every known subsystem
func (g *GateService) ActiveSessions(ctx context.Context, session *domain.Session) (map[domain.SubsystemID]bool, error) {
	return g.sessions.ActiveSubsystems(ctx, session.ID)
}

// Require is the guard-and-continue form of the authentication wrapper: when
// the session is not authenticated for the subsystem it returns invoked=false
// without calling fn, and the caller renders its credential prompt; when
// authenticated it calls fn exactly once and propagates its error.
func (g *GateService) Require(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID, fn func(context.Context) error) (invoked bool, err error) {
	if !g.IsAuthenticated(ctx, session, subsystem) {
		return false, nil
	}
	return true, fn(ctx)
}

// Subscribe registers a watcher for session state changes. The returned
// cancel function must be called to release the watcher. Slow watchers miss
// updates rather than block the gate.
func (g *GateService) Subscribe() (<-chan SessionUpdate, func()) {
	ch := make(chan SessionUpdate, 8)

	g.mu.Lock()
	g.watchers[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		delete(g.watchers, ch)
		g.mu.Unlock()
	}
	return ch, cancel
}

func (g *GateService) notify(ctx context.Context, session *domain.Session) {
	active, err := g.sessions.ActiveSubsystems(ctx, session.ID)
	if err != nil {
		return
	}
	update := SessionUpdate{SessionID: session.ID, Active: active}

	g.mu.Lock()
	defer g.mu.Unlock()
	for ch := range g.watchers {
		select {
		case ch <- update:
		default:
		}
	}
}
