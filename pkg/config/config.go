package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	DataDir            string
	LogLevel           string
	RedisURL           string // empty means in-memory sessions
	SecretsFile        string
	SessionTokenSecret string
	CORSAllowedOrigins []string
	LoginMaxAttempts   int
	LoginWindowSeconds int
	CacheTTLSeconds    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	loginMaxAttempts, err := strconv.Atoi(getEnv("LOGIN_MAX_ATTEMPTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_MAX_ATTEMPTS: %w", err)
	}

	loginWindow, err := strconv.Atoi(getEnv("LOGIN_WINDOW_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_WINDOW_SECONDS: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CONFIG_CACHE_TTL_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIG_CACHE_TTL_SECONDS: %w", err)
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		DataDir:            getEnv("DATA_DIR", "./data"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SecretsFile:        os.Getenv("ADMIN_SECRETS_FILE"),
		SessionTokenSecret: os.Getenv("SESSION_TOKEN_SECRET"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		LoginMaxAttempts:   loginMaxAttempts,
		LoginWindowSeconds: loginWindow,
		CacheTTLSeconds:    cacheTTL,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
