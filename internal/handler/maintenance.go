package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/observability/metrics"
	"github.com/yourorg/hrstage/internal/registry"
	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/service"
)

// resetConfirmWindow bounds how long a reset confirmation token stays valid.
const resetConfirmWindow = 5 * time.Minute

type resetToken struct {
	token    string
	issuedAt time.Time
}

// MaintenanceHandler serves the protected maintenance operations of a
// subsystem: configuration backup, restore, and the irreversible reset.
// Reset is a two-step confirm: the first call issues a one-time token, the
// second call must present it.
type MaintenanceHandler struct {
	gate     *service.GateService
	store    domain.ConfigStore
	registry *registry.Registry
	auditLog *audit.Logger
	logger   *slog.Logger

	mu          sync.Mutex
	resetTokens map[string]resetToken
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(gate *service.GateService, store domain.ConfigStore, reg *registry.Registry, auditLog *audit.Logger, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		gate:        gate,
		store:       store,
		registry:    reg,
		auditLog:    auditLog,
		logger:      logger,
		resetTokens: map[string]resetToken{},
	}
}

func (h *MaintenanceHandler) guard(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID)) {
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
		markAdminResponse(w, subsystem)
		op(ctx, session, subsystem)
		return nil
	})
	if !invoked {
		writeLoginPrompt(w, subsystem)
	}
}

// Backup handles POST /api/subsystems/{id}/backup and returns the bundle as
// a downloadable JSON document.
func (h *MaintenanceHandler) Backup(w http.ResponseWriter, r *http.Request) {
	h.guard(w, r, func(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID) {
		bundle, err := h.store.Backup(ctx, subsystem)
		if err != nil {
			metrics.ObserveConfigOperation(string(subsystem), "backup", "error")
			h.logger.Error("backup failed",
				slog.String("subsystem", string(subsystem)),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		metrics.ObserveConfigOperation(string(subsystem), "backup", "success")
		filename := fmt.Sprintf("%s_config_backup_%s.json", subsystem, time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		writeJSON(w, http.StatusOK, bundle)
	})
}

// Restore handles POST /api/subsystems/{id}/restore. The body is a bundle;
// entries are restored best effort and any failures are enumerated.
func (h *MaintenanceHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.guard(w, r, func(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID) {
		var bundle domain.Bundle
		if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
			writeError(w, http.StatusBadRequest, "backup file is not a valid JSON object")
			return
		}

		restored := make([]string, 0, len(bundle))
		for category := range bundle.Categories() {
			restored = append(restored, category)
		}
		sort.Strings(restored)

		err := h.store.Restore(ctx, subsystem, bundle)
		if err != nil {
			var partial *domain.PartialRestoreError
			if errors.As(err, &partial) {
				metrics.ObserveConfigOperation(string(subsystem), "restore", "partial")
				h.auditLog.LogRestore(ctx, session.ID, string(subsystem), "partial",
					"failed: "+strings.Join(partial.FailedCategories(), ", "))
				writeJSON(w, http.StatusMultiStatus, map[string]any{
					"restored":         withoutAll(restored, partial.FailedCategories()),
					"failedCategories": partial.FailedCategories(),
					"error":            partial.Error(),
				})
				return
			}

			metrics.ObserveConfigOperation(string(subsystem), "restore", "error")
			h.auditLog.LogRestore(ctx, session.ID, string(subsystem), "failure", err.Error())
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		metrics.ObserveConfigOperation(string(subsystem), "restore", "success")
		h.auditLog.LogRestore(ctx, session.ID, string(subsystem), "success", "")
		writeJSON(w, http.StatusOK, map[string]any{
			"restored": restored,
		})
	})
}

// ResetRequest optionally carries the confirmation token from the first step
type ResetRequest struct {
	ConfirmToken string `json:"confirmToken"`
}

// Reset handles POST /api/subsystems/{id}/reset
func (h *MaintenanceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.guard(w, r, func(ctx context.Context, session *domain.Session, subsystem domain.SubsystemID) {
		var req ResetRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request")
				return
			}
		}

		key := session.ID + "/" + string(subsystem)

		if req.ConfirmToken == "" {
			token := uuid.NewString()
			h.mu.Lock()
			h.resetTokens[key] = resetToken{token: token, issuedAt: time.Now()}
			h.mu.Unlock()

			writeJSON(w, http.StatusOK, map[string]any{
				"confirmRequired": true,
				"confirmToken":    token,
				"warning":         "this will delete all configuration files for " + subsystem.DisplayName() + " and cannot be undone",
			})
			return
		}

		h.mu.Lock()
		issued, ok := h.resetTokens[key]
		delete(h.resetTokens, key)
		h.mu.Unlock()

		if !ok || issued.token != req.ConfirmToken || time.Since(issued.issuedAt) > resetConfirmWindow {
			h.auditLog.LogReset(ctx, session.ID, string(subsystem), "rejected")
			writeError(w, http.StatusConflict, "confirmation token invalid or expired, request a new one")
			return
		}

		deleted, err := h.store.ListCategories(ctx, subsystem)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := h.store.DeleteAll(ctx, subsystem); err != nil {
			metrics.ObserveConfigOperation(string(subsystem), "delete_all", "error")
			h.auditLog.LogReset(ctx, session.ID, string(subsystem), "failure")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		metrics.ObserveConfigOperation(string(subsystem), "delete_all", "success")
		h.auditLog.LogReset(ctx, session.ID, string(subsystem), "success")
		writeJSON(w, http.StatusOK, map[string]any{
			"reset":             true,
			"deletedCategories": deleted,
		})
	})
}

func withoutAll(values []string, exclude []string) []string {
	excluded := map[string]bool{}
	for _, v := range exclude {
		excluded[v] = true
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !excluded[v] {
			out = append(out, v)
		}
	}
	return out
}
