package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/handler"
	"github.com/yourorg/hrstage/internal/infrastructure/logger"
	hrredis "github.com/yourorg/hrstage/internal/infrastructure/redis"
	"github.com/yourorg/hrstage/internal/observability/metrics"
	"github.com/yourorg/hrstage/internal/observability/tracing"
	"github.com/yourorg/hrstage/internal/registry"
	"github.com/yourorg/hrstage/internal/reliability/retry"
	"github.com/yourorg/hrstage/internal/repository"
	"github.com/yourorg/hrstage/internal/security/audit"
	"github.com/yourorg/hrstage/internal/security/auth"
	"github.com/yourorg/hrstage/internal/security/middleware"
	"github.com/yourorg/hrstage/internal/security/ratelimit"
	"github.com/yourorg/hrstage/internal/service"
	"github.com/yourorg/hrstage/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting hrstage admin server", slog.String("environment", cfg.Environment))

	// 3. Initialize tracing
	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, log, "hrstage", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. Session storage: Redis when configured, otherwise in-process
	var (
		sessionRepo domain.SessionRepository
		redisClient *hrredis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = retry.Do(ctx, retry.DefaultConfig(), log, "redis connect", func(ctx context.Context) (*hrredis.Client, error) {
			return hrredis.NewClient(cfg.RedisURL)
		})
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		sessionRepo = repository.NewRedisSessionRepository(redisClient, log)
		log.Info("sessions stored in Redis")
	} else {
		sessionRepo = repository.NewMemorySessionRepository()
		log.Info("sessions stored in memory")
	}

	// 5. Repositories and credential sources
	configRepo := repository.NewConfigRepository(cfg.DataDir, time.Duration(cfg.CacheTTLSeconds)*time.Second, log)

	sources := []auth.SecretSource{}
	if cfg.SecretsFile != "" {
		sources = append(sources, auth.FileSource{Path: cfg.SecretsFile})
	}
	sources = append(sources, auth.EnvSource{})
	credResolver := auth.NewCredentialResolver(sources...)

	// 6. Services
	gateService := service.NewGateService(sessionRepo, credResolver, log)
	statusService := service.NewStatusService(configRepo, log)
	subsystems := registry.New(log)

	// 7. Security components
	tokenManager := auth.NewTokenManager(cfg.SessionTokenSecret, "hrstage")
	loginLimiter := ratelimit.NewLimiter(cfg.LoginMaxAttempts, time.Duration(cfg.LoginWindowSeconds)*time.Second)
	auditLogger := audit.NewLogger(log)

	// 8. Handlers
	loginHandler := handler.NewLoginHandler(gateService, subsystems, auditLogger, log)
	logoutHandler := handler.NewLogoutHandler(gateService, subsystems, auditLogger, log)
	sessionsHandler := handler.NewSessionsHandler(gateService, auditLogger, log)
	subsystemsHandler := handler.NewSubsystemsHandler(subsystems, log)
	configHandler := handler.NewConfigHandler(gateService, configRepo, subsystems, auditLogger, log)
	statusHandler := handler.NewStatusHandler(gateService, statusService, subsystems, log)
	maintenanceHandler := handler.NewMaintenanceHandler(gateService, configRepo, subsystems, auditLogger, log)
	streamHandler := handler.NewStreamHandler(gateService, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(cfg.DataDir, redisClient, log)

	// 9. HTTP routes
	mux := http.NewServeMux()
	mux.Handle("GET /api/subsystems", subsystemsHandler)
	mux.Handle("POST /api/subsystems/{id}/login", loginHandler)
	mux.Handle("POST /api/subsystems/{id}/logout", logoutHandler)
	// Kept as an alias so older admin clients can still drop their session
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
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> tracing -> session -> audit -> login rate limit
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			otelhttp.NewHandler(
				middleware.SessionMiddleware(tokenManager, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.LoginRateLimitMiddleware(loginLimiter, auditLogger, log)(handlerWithCORS),
					),
				),
				"hrstage",
			),
		),
		log,
	)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("data_dir", cfg.DataDir),
		slog.Int("login_rate_limit", cfg.LoginMaxAttempts),
		slog.Int("login_rate_window_seconds", cfg.LoginWindowSeconds),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	loginLimiter.Stop()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
