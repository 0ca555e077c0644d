package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/registry"
	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/service"
)

// LoginRequest carries the attempted admin password
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse reports the new gate state for the subsystem
type LoginResponse struct {
	Authenticated bool               `json:"authenticated"`
	Subsystem     domain.SubsystemID `json:"subsystem"`
	DisplayName   string             `json:"displayName"`
}

// LoginHandler handles per-subsystem admin authentication
type LoginHandler struct {
	gate     *service.GateService
	registry *registry.Registry
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(gate *service.GateService, reg *registry.Registry, auditLog *audit.Logger, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{gate: gate, registry: reg, auditLog: auditLog, logger: logger}
}

// ServeHTTP handles POST /api/subsystems/{id}/login
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subsystem := domain.SubsystemID(r.PathValue("id"))
	if !h.registry.Available(subsystem) {
		writeError(w, http.StatusNotFound, "unknown subsystem")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusInternalServerError, "no session bound to request")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if !h.gate.Authenticate(r.Context(), session, subsystem, req.Password) {
		h.auditLog.LogLogin(r.Context(), session.ID, string(subsystem), "failure")
		// Inline, user-recoverable: the caller renders the message and the
		// operator may retry.
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	h.auditLog.LogLogin(r.Context(), session.ID, string(subsystem), "success")
	markAdminResponse(w, subsystem)
	writeJSON(w, http.StatusOK, LoginResponse{
		Authenticated: true,
		Subsystem:     subsystem,
		DisplayName:   subsystem.DisplayName(),
	})
}

// LogoutHandler clears a session's admin access to one subsystem. It also
// serves the "reset this subsystem's session state" affordance shown after
// a panel failure.
type LogoutHandler struct {
	gate     *service.GateService
	registry *registry.Registry
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewLogoutHandler creates a new logout handler
func NewLogoutHandler(gate *service.GateService, reg *registry.Registry, auditLog *audit.Logger, logger *slog.Logger) *LogoutHandler {
	return &LogoutHandler{gate: gate, registry: reg, auditLog: auditLog, logger: logger}
}

// ServeHTTP handles POST /api/subsystems/{id}/logout
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subsystem := domain.SubsystemID(r.PathValue("id"))
	if !h.registry.Available(subsystem) {
		writeError(w, http.StatusNotFound, "unknown subsystem")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusInternalServerError, "no session bound to request")
		return
	}

	// Idempotent: logging out of a subsystem you never entered is fine.
	if err := h.gate.Logout(r.Context(), session, subsystem); err != nil {
		h.logger.Error("logout failed",
			slog.String("session_id", session.ID),
			slog.String("subsystem", string(subsystem)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	h.auditLog.LogLogout(r.Context(), session.ID, string(subsystem))
	writeJSON(w, http.StatusOK, LoginResponse{
		Authenticated: false,
		Subsystem:     subsystem,
		DisplayName:   subsystem.DisplayName(),
	})
}
