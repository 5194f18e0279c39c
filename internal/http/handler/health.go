package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck probes one backing store.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags health
// @Success 200 {object} map[string]string
// @Router /health [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}

// ReadinessProbe godoc
// @Summary Readiness probe
// @Tags health
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /ready [get]
func ReadinessProbe(log *zap.Logger, checks ...ReadinessCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		for _, chk := range checks {
			if err := chk.Check(ctx); err != nil {
				log.Warn("Readiness check failed", zap.String("dependency", chk.Name), zap.Error(err))
				return writeError(c, fiber.StatusServiceUnavailable, chk.Name+" unavailable")
			}
		}
		return c.JSON(fiber.Map{"status": "ready"})
	}
}
