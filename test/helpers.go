package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/hrstage/internal/handler"
	"github.com/yourorg/hrstage/internal/infrastructure/logger"
	"github.com/yourorg/hrstage/internal/registry"
	"github.com/yourorg/hrstage/internal/repository"
	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/auth"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/security/ratelimit"
	"github.com/yourorg/hrstage/internal/service"
)

// TestServerHelper runs the full admin API against a temp data directory and
// in-memory sessions. The client carries a cookie jar, so it behaves like one
// browser session.
type TestServerHelper struct {
	Server  *httptest.Server
	Client  *http.Client
	Limiter *ratelimit.Limiter
	DataDir string
}

// NewTestServer wires the same stack as cmd/server, minus tracing.
func NewTestServer(t *testing.T, secrets map[string]string) *TestServerHelper {
	t.Helper()

	for key, value := range secrets {
		t.Setenv(key, value)
	}

	log := logger.NewLogger("debug")
	dataDir := t.TempDir()

	sessionRepo := repository.NewMemorySessionRepository()
	configRepo := repository.NewConfigRepository(dataDir, time.Second, log)
	credResolver := auth.NewCredentialResolver(auth.EnvSource{})

	gateService := service.NewGateService(sessionRepo, credResolver, log)
	statusService := service.NewStatusService(configRepo, log)
	subsystems := registry.New(log)

	tokenManager := auth.NewTokenManager("test-secret", "hrstage")
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	auditLogger := audit.NewLogger(log)

	loginHandler := handler.NewLoginHandler(gateService, subsystems, auditLogger, log)
	logoutHandler := handler.NewLogoutHandler(gateService, subsystems, auditLogger, log)
	sessionsHandler := handler.NewSessionsHandler(gateService, auditLogger, log)
	subsystemsHandler := handler.NewSubsystemsHandler(subsystems, log)
	configHandler := handler.NewConfigHandler(gateService, configRepo, subsystems, auditLogger, log)
	statusHandler := handler.NewStatusHandler(gateService, statusService, subsystems, log)
	maintenanceHandler := handler.NewMaintenanceHandler(gateService, configRepo, subsystems, auditLogger, log)
	streamHandler := handler.NewStreamHandler(gateService, log, nil)
	healthHandler := handler.NewHealthHandler(dataDir, nil, log)

	mux := http.NewServeMux()
	mux.Handle("GET /api/subsystems", subsystemsHandler)
	mux.Handle("POST /api/subsystems/{id}/login", loginHandler)
	mux.Handle("POST /api/subsystems/{id}/logout", logoutHandler)
	mux.Handle("POST /api/subsystems/{id}/session/reset", logoutHandler)
	mux.Handle("GET /api/subsystems/{id}/status", statusHandler)
	mux.HandleFunc("GET /api/subsystems/{id}/config", configHandler.List)
	mux.HandleFunc("GET /api/subsystems/{id}/config/{category}", configHandler.Get)
	mux.HandleFunc("PUT /api/subsystems/{id}/config/{category}", configHandler.Put)
	mux.HandleFunc("POST /api/subsystems/{id}/backup", maintenanceHandler.Backup)
	mux.HandleFunc("POST /api/subsystems/{id}/restore", maintenanceHandler.Restore)
	mux.HandleFunc("POST /api/subsystems/{id}/reset", maintenanceHandler.Reset)
	mux.HandleFunc("GET /api/sessions", sessionsHandler.List)
	mux.HandleFunc("POST /api/sessions/logout-all", sessionsHandler.LogoutAll)
	mux.Handle("GET /ws/sessions", streamHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	root := middleware.SessionMiddleware(tokenManager, log)(
		middleware.AuditMiddleware(auditLogger)(
			middleware.LoginRateLimitMiddleware(limiter, auditLogger, log)(mux),
		),
	)

	server := httptest.NewServer(root)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}

	helper := &TestServerHelper{
		Server:  server,
		Client:  &http.Client{Jar: jar},
		Limiter: limiter,
		DataDir: dataDir,
	}
	t.Cleanup(helper.Close)
	return helper
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
	h.Limiter.Stop()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// DoJSON sends a request with an optional JSON body and decodes the JSON
// response into a generic map.
func (h *TestServerHelper) DoJSON(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.URL()+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

// Login authenticates the client session against one subsystem.
func (h *TestServerHelper) Login(t *testing.T, subsystem, password string) {
	t.Helper()
	resp, result := h.DoJSON(t, "POST", "/api/subsystems/"+subsystem+"/login", map[string]string{"password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login to %s failed: %d %v", subsystem, resp.StatusCode, result)
	}
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
