package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID for audit lines
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Logger emits structured audit lines for admin actions
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// LogAction records one admin action against a subsystem resource
func (al *Logger) LogAction(ctx context.Context, sessionID, subsystem, action, resource, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("subsystem", subsystem),
		slog.String("session_id", sessionID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

// LogLogin records an authentication attempt outcome
func (al *Logger) LogLogin(ctx context.Context, sessionID, subsystem, status string) {
	al.LogAction(ctx, sessionID, subsystem, "login", "session", status, "")
}

// LogLogout records a logout; subsystem is "*" for logout-all
func (al *Logger) LogLogout(ctx context.Context, sessionID, subsystem string) {
	al.LogAction(ctx, sessionID, subsystem, "logout", "session", "success", "")
}

// LogConfigSave records a configuration document replacement
func (al *Logger) LogConfigSave(ctx context.Context, sessionID, subsystem, category, status string) {
	al.LogAction(ctx, sessionID, subsystem, "config_save", category, status, "")
}

// LogReset records a delete-all of a subsystem's configuration
func (al *Logger) LogReset(ctx context.Context, sessionID, subsystem, status string) {
	al.LogAction(ctx, sessionID, subsystem, "config_reset", "all", status, "")
}

// LogRestore records a bundle restore and which entries failed, if any
func (al *Logger) LogRestore(ctx context.Context, sessionID, subsystem, status, details string) {
	al.LogAction(ctx, sessionID, subsystem, "config_restore", "bundle", status, details)
}

// LogDenied records a request blocked before reaching its handler
func (al *Logger) LogDenied(ctx context.Context, sessionID, subsystem, reason string) {
	al.LogAction(ctx, sessionID, subsystem, "access_denied", "api", "denied", reason)
}
