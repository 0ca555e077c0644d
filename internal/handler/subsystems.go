package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/hrstage/internal/registry"
)

// SubsystemsHandler returns the admin panel registry
type SubsystemsHandler struct {
	registry *registry.Registry
	log      *slog.Logger
}

// NewSubsystemsHandler creates a new subsystems handler
func NewSubsystemsHandler(reg *registry.Registry, log *slog.Logger) *SubsystemsHandler {
	return &SubsystemsHandler{registry: reg, log: log}
}

// ServeHTTP handles GET /api/subsystems
func (h *SubsystemsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"subsystems": h.registry.Entries(),
	})
}
