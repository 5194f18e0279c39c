package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"loanapi/internal/correlation"
)

const (
	// CorrelationIDHeader carries the caller's correlation ID in both directions.
	CorrelationIDHeader = "X-Correlation-ID"
	// CorrelationIDLocalKey is the Fiber locals key holding the correlation ID.
	CorrelationIDLocalKey = "correlation_id"
)

// CorrelationID takes X-Correlation-ID from the request or generates one,
// echoes it on the response, and stores it in locals and in the user context
// so services can log and publish it.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(CorrelationIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Locals(CorrelationIDLocalKey, id)
		c.SetUserContext(correlation.WithID(c.UserContext(), id))
		c.Set(CorrelationIDHeader, id)

		return c.Next()
	}
}

// CorrelationIDFrom returns the ID stored by CorrelationID, or "".
func CorrelationIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(CorrelationIDLocalKey).(string); ok {
		return id
	}
	return ""
}
