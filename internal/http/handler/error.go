package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loanapi/internal/http/middleware"
)

// errorPayload is the only error body the API returns.
type errorPayload struct {
	Error string `json:"error"`
}

// writeError writes a client-safe message. Internal causes belong in the log.
func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorPayload{Error: message})
}

// ErrorHandler returns a Fiber global error handler for errors that escape
// the route handlers, such as unknown routes or oversized bodies.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "Bad request.")
		case fiber.StatusNotFound:
			return writeError(c, status, "Not found.")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "Method not allowed.")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "Request body too large.")
		default:
			log.Error("Unhandled request error",
				zap.String("correlation_id", middleware.CorrelationIDFrom(c)),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return writeError(c, fiber.StatusInternalServerError, "Internal server error.")
		}
	}
}
