package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/service"
)

// SessionsHandler exposes multi-subsystem session introspection: which
// subsystems the calling session currently holds admin access to, and a
// one-call logout across all of them.
type SessionsHandler struct {
	gate     *service.GateService
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(gate *service.GateService, auditLog *audit.Logger, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{gate: gate, auditLog: auditLog, logger: logger}
}

// List handles GET /api/sessions
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusInternalServerError, "no session bound to request")
		return
	}

	active, err := h.gate.ActiveSessions(r.Context(), session)
	if err != nil {
		h.logger.Error("failed to read session state",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read session state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"active":    active,
	})
}

// LogoutAll handles POST /api/sessions/logout-all
func (h *SessionsHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusInternalServerError, "no session bound to request")
		return
	}

	if err := h.gate.LogoutAll(r.Context(), session); err != nil {
		h.logger.Error("logout-all failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	h.auditLog.LogLogout(r.Context(), session.ID, "*")
	active, err := h.gate.ActiveSessions(r.Context(), session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read session state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"active":    active,
	})
}
