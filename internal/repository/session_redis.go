package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/infrastructure/redis"
)

// RedisSessionRepository implements domain.SessionRepository on Redis, for
// deployments running more than one suite instance behind a load balancer.
// Keys are "session:<id>:<subsystem>" with value "1"; flags have no TTL.
type RedisSessionRepository struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisSessionRepository creates a Redis-backed session repository
func NewRedisSessionRepository(redisClient *redis.Client, logger *slog.Logger) *RedisSessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSessionRepository{redis: redisClient, logger: logger}
}

// SetAuthenticated records the flag for one subsystem
func (r *RedisSessionRepository) SetAuthenticated(ctx context.Context, sessionID string, subsystem domain.SubsystemID, authenticated bool) error {
	key := sessionKey(sessionID, subsystem)
	if !authenticated {
		if err := r.redis.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session flag: %w", err)
		}
		return nil
	}
	if err := r.redis.Set(ctx, key, "1"); err != nil {
		return fmt.Errorf("failed to store session flag: %w", err)
	}
	r.logger.Debug("session flag set",
		slog.String("session_id", sessionID),
		slog.String("subsystem", string(subsystem)),
	)
	return nil
}

// IsAuthenticated reads the flag for one subsystem
func (r *RedisSessionRepository) IsAuthenticated(ctx context.Context, sessionID string, subsystem domain.SubsystemID) (bool, error) {
	value, found, err := r.redis.Get(ctx, sessionKey(sessionID, subsystem))
	if err != nil {
		return false, fmt.Errorf("failed to read session flag: %w", err)
	}
	return found && value == "1", nil
}

// ActiveSubsystems returns the flag for every known subsystem
func (r *RedisSessionRepository) ActiveSubsystems(ctx context.Context, sessionID string) (map[domain.SubsystemID]bool, error) {
	out := map[domain.SubsystemID]bool{}
	for _, subsystem := range domain.AllSubsystems() {
		authenticated, err := r.IsAuthenticated(ctx, sessionID, subsystem)
		if err != nil {
			return nil, err
		}
		out[subsystem] = authenticated
	}
	return out, nil
}

// ClearAll resets every subsystem's flag for the session
func (r *RedisSessionRepository) ClearAll(ctx context.Context, sessionID string) error {
	keys, err := r.redis.Keys(ctx, "session:"+sessionID+":*")
	if err != nil {
		return fmt.Errorf("failed to list session flags: %w", err)
	}
	if err := r.redis.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear session flags: %w", err)
	}
	return nil
}

func sessionKey(sessionID string, subsystem domain.SubsystemID) string {
	return fmt.Sprintf("session:%s:%s", sessionID, subsystem)
}
