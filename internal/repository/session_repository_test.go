package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/infrastructure/redis"
)

// Both implementations must satisfy the same contract, so each test runs
// against both.
func sessionRepos(t *testing.T) map[string]domain.SessionRepository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClientFromAddr(mr.Addr())
	t.Cleanup(func() { client.Close() })

	return map[string]domain.SessionRepository{
		"memory": NewMemorySessionRepository(),
		"redis":  NewRedisSessionRepository(client, nil),
	}
}

func TestSessionFlagsDefaultToFalse(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			authenticated, err := repo.IsAuthenticated(ctx, "s1", domain.SubsystemPayroll)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if authenticated {
				t.Fatalf("never-set flag must read as false")
			}
		})
	}
}

func TestSessionSetAndClearFlag(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := repo.SetAuthenticated(ctx, "s1", domain.SubsystemEmployee, true); err != nil {
				t.Fatalf("set: %v", err)
			}
			if ok, _ := repo.IsAuthenticated(ctx, "s1", domain.SubsystemEmployee); !ok {
				t.Fatalf("flag should read true after set")
			}
			// Other subsystems and sessions are untouched
			if ok, _ := repo.IsAuthenticated(ctx, "s1", domain.SubsystemPayroll); ok {
				t.Fatalf("payroll flag must stay false")
			}
			if ok, _ := repo.IsAuthenticated(ctx, "s2", domain.SubsystemEmployee); ok {
				t.Fatalf("other session must stay false")
			}

			if err := repo.SetAuthenticated(ctx, "s1", domain.SubsystemEmployee, false); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if ok, _ := repo.IsAuthenticated(ctx, "s1", domain.SubsystemEmployee); ok {
				t.Fatalf("flag should read false after clear")
			}
		})
	}
}

func TestSessionActiveSubsystems(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			repo.SetAuthenticated(ctx, "s1", domain.SubsystemFoundation, true)

			active, err := repo.ActiveSubsystems(ctx, "s1")
			if err != nil {
				t.Fatalf("active: %v", err)
			}
			if len(active) != len(domain.AllSubsystems()) {
				t.Fatalf("expected a flag for every subsystem, got %v", active)
			}
			if !active[domain.SubsystemFoundation] {
				t.Fatalf("foundation should be active")
			}
			if active[domain.SubsystemEmployee] || active[domain.SubsystemPayroll] {
				t.Fatalf("only foundation should be active, got %v", active)
			}
		})
	}
}

func TestSessionClearAll(t *testing.T) {
	for name, repo := range sessionRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, subsystem := range domain.AllSubsystems() {
				repo.SetAuthenticated(ctx, "s1", subsystem, true)
			}
			repo.SetAuthenticated(ctx, "s2", domain.SubsystemPayroll, true)

			if err := repo.ClearAll(ctx, "s1"); err != nil {
				t.Fatalf("clear all: %v", err)
			}

			active, _ := repo.ActiveSubsystems(ctx, "s1")
			for subsystem, flag := range active {
				if flag {
					t.Fatalf("subsystem %s still active after clear", subsystem)
				}
			}
			if ok, _ := repo.IsAuthenticated(ctx, "s2", domain.SubsystemPayroll); !ok {
				t.Fatalf("other session must survive a clear")
			}

			// Clearing an empty session is fine
			if err := repo.ClearAll(ctx, "s1"); err != nil {
				t.Fatalf("repeat clear all: %v", err)
			}
		})
	}
}
