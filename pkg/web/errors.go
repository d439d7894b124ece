package web

import (
	"errors"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

func sendProblem(c fiber.Ctx, problem *problems.Problem) error {
	return c.Status(problem.Status).JSON(problem, problemContentType)
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return sendProblem(c, problem)
}

func unauthorized(c fiber.Ctx) error {
	problem := problems.NewStatusProblem(fiber.StatusUnauthorized).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail("missing or invalid bearer token")

	return sendProblem(c, problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return sendProblem(c, problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return sendProblem(c, problem)
}

// ruleViolation answers with an unsuccessful envelope so clients show the
// message to the user as is.
func ruleViolation(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(models.Failure(message))
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var serviceErr *services.ServiceError

	switch {
	case services.IsRuleError(err):
		errors.As(err, &serviceErr)

		return ruleViolation(c, serviceErr.Message)

	case services.IsValidationError(err):
		detail := err.Error()
		if errors.As(err, &serviceErr) && serviceErr.Message != "" {
			detail = serviceErr.Message
		}

		return badRequest(c, detail)

	case errors.Is(err, services.ErrApplicationNotFound):
		return notFound(c, "application_not_found", "application not found")

	case errors.Is(err, services.ErrDocumentNotFound):
		return notFound(c, "document_not_found", "required document not found")

	case errors.Is(err, services.ErrTemplateNotFound):
		return notFound(c, "service_not_found", "service template not found")

	default:
		return internalError(c, err)
	}
}
