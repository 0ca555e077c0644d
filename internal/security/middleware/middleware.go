package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/auth"
	"github.com/yourorg/hrstage/internal/security/ratelimit"
)

// SessionCookieName is the cookie carrying the signed session-ID token.
const SessionCookieName = "hrstage_session"

type sessionContextKey struct{}

// SessionMiddleware binds every request to a Session. The session token is
// read from the session cookie or an Authorization bearer header; a missing
// or invalid token mints a fresh session and sets the cookie, so sessions
// come into being implicitly on first access.
func SessionMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := resolveSession(r, tm)
			if session == nil {
				session = &domain.Session{ID: uuid.NewString(), CreatedAt: time.Now()}
				token, err := tm.Mint(session.ID)
				if err != nil {
					log.Error("failed to mint session token", slog.String("error", err.Error()))
					http.Error(w, `{"error":"session initialization failed"}`, http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debug("session created", slog.String("session_id", session.ID))
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSession(r *http.Request, tm *auth.TokenManager) *domain.Session {
	tokenString := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		tokenString = cookie.Value
	} else if header := r.Header.Get("Authorization"); header != "" {
		if bearer, err := auth.ExtractToken(header); err == nil {
			tokenString = bearer
		}
	}
	if tokenString == "" {
		return nil
	}

	sessionID, err := tm.Parse(tokenString)
	if err != nil {
		return nil
	}
	return &domain.Session{ID: sessionID}
}

// SessionFromContext returns the session bound by SessionMiddleware
func SessionFromContext(ctx context.Context) *domain.Session {
	if s, ok := ctx.Value(sessionContextKey{}).(*domain.Session); ok {
		return s
	}
	return nil
}

// LoginRateLimitMiddleware throttles credential submissions per client and
// subsystem. Only login endpoints are limited; the gate itself permits any
// number of attempts.
func LoginRateLimitMiddleware(limiter *ratelimit.Limiter, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/login") {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r) + "|" + r.URL.Path
			if !limiter.Allow(key) {
				sessionID := ""
				if s := SessionFromContext(r.Context()); s != nil {
					sessionID = s.ID
				}
				auditLog.LogDenied(r.Context(), sessionID, subsystemFromPath(r.URL.Path), "login rate limit exceeded")
				log.Warn("login rate limit exceeded",
					slog.String("client", clientIP(r)),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, `{"error":"too many login attempts, try again later"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records mutating API requests as initiated; handlers log
// outcomes with status.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") &&
				(r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodDelete) &&
				!strings.HasSuffix(r.URL.Path, "/login") {
				sessionID := ""
				if s := SessionFromContext(r.Context()); s != nil {
					sessionID = s.ID
				}
				auditLog.LogAction(r.Context(), sessionID, subsystemFromPath(r.URL.Path),
					strings.ToLower(r.Method), r.URL.Path, "initiated", "")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// subsystemFromPath extracts the subsystem segment from
// /api/subsystems/{id}/..., or "" when the path has another shape.
func subsystemFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "subsystems" {
		return parts[2]
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
