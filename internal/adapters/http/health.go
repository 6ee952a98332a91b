package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": version,
		})
	}
}

// readinessCheck is one dependency checked by ReadyHandler. ok=false marks the service not ready; detail is
// reported either way.
type readinessCheck struct {
	name  string
	check func(ctx context.Context) (detail string, ok bool)
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	storageName := deps.StorageName
	if storageName == "" {
		storageName = "storage"
	}

	return []readinessCheck{
		{storageName, func(ctx context.Context) (string, bool) {
			if deps.Storage == nil {
				return "not configured", false
			}
			if err := deps.Storage.Ping(ctx); err != nil {
				return "error: " + err.Error(), false
			}
			return "ok", true
		}},
		// NATS is optional; only a configured but disconnected client fails readiness.
		{"nats", func(ctx context.Context) (string, bool) {
			switch {
			case deps.NATS == nil:
				return "not configured", true
			case !deps.NATS.IsConnected():
				return "disconnected", false
			}
			return "ok", true
		}},
		{"session", func(ctx context.Context) (string, bool) {
			if deps.Session == nil {
				return "not configured", false
			}
			st := deps.Session.Status()
			if st.Terminating {
				return fmt.Sprintf("terminating: %s", st.Classification), false
			}
			return st.Classification.String(), true
		}},
	}
}

// ReadyHandler checks the storage backend, NATS and the session itself.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	targets := readinessChecks(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(targets))
		ready := true
		for _, p := range targets {
			detail, ok := p.check(ctx)
			checks[p.name] = detail
			ready = ready && ok
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": checks,
			})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
