package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/service"
)

// StreamHandler handles WebSocket connections for live session status. A
// client gets an initial snapshot of its own subsystem flags, then a frame
// whenever a login or logout changes them.
type StreamHandler struct {
	gate           *service.GateService
	logger         *slog.Logger
	allowedOrigins []string
}

// NewStreamHandler creates a new session stream handler
func NewStreamHandler(gate *service.GateService, logger *slog.Logger, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		gate:           gate,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *StreamHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles WebSocket requests for session status
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		http.Error(w, "no session bound to request", http.StatusInternalServerError)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ctx := r.Context()

	// Subscribe before the snapshot so a state change in between is not lost
	updates, cancel := h.gate.Subscribe()
	defer cancel()

	active, err := h.gate.ActiveSessions(ctx, session)
	if err != nil {
		ws.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	if err := ws.WriteJSON(service.SessionUpdate{SessionID: session.ID, Active: active}); err != nil {
		return
	}

	// Drain client frames so we notice a closed connection
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-clientGone:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// Each client only sees its own session's flags
			if update.SessionID != session.ID {
				continue
			}
			ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := ws.WriteJSON(update); err != nil {
				h.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
