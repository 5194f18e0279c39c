package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loanapi/internal/service"
)

// RegisterRoutes attaches the application and probe routes.
func RegisterRoutes(app *fiber.App, log *zap.Logger, submissions service.SubmissionService, statuses service.StatusService, checks ...ReadinessCheck) {
	app.Get("/health", LivenessProbe())
	app.Get("/ready", ReadinessProbe(log, checks...))

	loans := app.Group("/api/loans/applications")
	loans.Post("", SubmitApplication(submissions))
	loans.Get("/:id", GetApplicationStatus(statuses))
	loans.Get("/:id/documents", ListApplicationDocuments(statuses))
}
