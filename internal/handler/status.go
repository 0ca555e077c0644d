package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/registry"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/service"
)

// StatusHandler reports a subsystem's configuration status: which expected
// categories are configured and an overall verdict for the dashboard.
type StatusHandler struct {
	gate     *service.GateService
	status   *service.StatusService
	registry *registry.Registry
	logger   *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(gate *service.GateService, status *service.StatusService, reg *registry.Registry, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{gate: gate, status: status, registry: reg, logger: logger}
}

// ServeHTTP handles GET /api/subsystems/{id}/status
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	invoked, _ := h.gate.Require(r.Context(), session, subsystem, func(ctx context.Context) error {
		report, err := h.status.Report(ctx, subsystem)
		if err != nil {
			h.logger.Error("failed to build status report",
				slog.String("subsystem", string(subsystem)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, err.Error())
			return nil
		}
		markAdminResponse(w, subsystem)
		writeJSON(w, http.StatusOK, report)
		return nil
	})
	if !invoked {
		writeLoginPrompt(w, subsystem)
	}
}
