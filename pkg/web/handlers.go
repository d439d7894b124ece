// Package web provides the HTTP handlers of the application API.
package web

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	applications *services.Applications
	validator    *validator.Validate
	logger       *slog.Logger
}

func NewAPIHandlers(
	applications *services.Applications,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		applications: applications,
		validator:    validator,
		logger:       logger,
	}
}

// Register mounts the application routes on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	a := router.Group("/applications", h.WithActor)
	a.Get("/", h.ListApplications)
	a.Post("/", h.CreateApplication)
	a.Get("/:id", h.GetApplication)

	a.Get("/:id/required-documents", h.ListRequiredDocuments)
	a.Get("/:id/required-documents/status", h.DocumentStatus)
	a.Post("/:id/required-documents/:documentId/upload", h.UploadDocument)
	a.Post("/:id/required-documents/:documentId/verify", h.VerifyDocument)

	a.Get("/:id/workflow", h.ListWorkflowSteps)
	a.Get("/:id/workflow/current", h.CurrentStep)
	a.Post("/:id/workflow/start", h.StartWorkflow)
	a.Post("/:id/workflow/advance", h.AdvanceWorkflow)
}

// WithActor stores the acting user's name from the request header in the context.
func (h *APIHandlers) WithActor(c fiber.Ctx) error {
	if actor := strings.TrimSpace(c.Get(ActorHeader)); actor != "" {
		c.SetContext(services.WithActor(c.Context(), actor))
	}

	return c.Next()
}

// RequireToken rejects requests without the bearer token. An empty token disables the check.
func RequireToken(token string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if token == "" || c.Path() == "/health" {
			return c.Next()
		}

		got, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return unauthorized(c)
		}

		return c.Next()
	}
}

func ok[T any](c fiber.Ctx, status int, data T) error {
	return c.Status(status).JSON(models.OK(data))
}

// bind decodes and validates a JSON body. An empty body leaves req untouched.
func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(req); err != nil {
			return errors.New("invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return validationErrors
		}

		return err
	}

	return nil
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.applications.HealthCheck(c.Context())

	response := HealthResponse{
		Status:    "unhealthy",
		Message:   "Appflow API is unhealthy",
		Checkers:  map[string]string{"repository": repositoryCheck},
		Timestamp: time.Now().UTC(),
	}
	httpStatus := http.StatusInternalServerError

	if repOk {
		response.Status = "healthy"
		response.Message = "Appflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(response)
}

func (h *APIHandlers) ListApplications(c fiber.Ctx) error {
	applications, err := h.applications.ListApplications(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, applications)
}

func (h *APIHandlers) CreateApplication(c fiber.Ctx) error {
	var req models.CreateApplicationRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	application, err := h.applications.CreateApplication(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusCreated, application)
}

func (h *APIHandlers) GetApplication(c fiber.Ctx) error {
	application, err := h.applications.GetApplication(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, application)
}

func (h *APIHandlers) ListRequiredDocuments(c fiber.Ctx) error {
	documents, err := h.applications.ListRequiredDocuments(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, documents)
}

func (h *APIHandlers) DocumentStatus(c fiber.Ctx) error {
	summary, err := h.applications.DocumentStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, summary)
}

func (h *APIHandlers) UploadDocument(c fiber.Ctx) error {
	var req models.UploadDocumentRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.applications.UploadDocument(c.Context(), c.Params("id"), c.Params("documentId"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, document)
}

func (h *APIHandlers) VerifyDocument(c fiber.Ctx) error {
	var req models.VerifyDocumentRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.applications.VerifyDocument(c.Context(), c.Params("id"), c.Params("documentId"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, document)
}

func (h *APIHandlers) ListWorkflowSteps(c fiber.Ctx) error {
	steps, err := h.applications.ListWorkflowSteps(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, steps)
}

func (h *APIHandlers) CurrentStep(c fiber.Ctx) error {
	summary, err := h.applications.CurrentStep(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, summary)
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	result, err := h.applications.StartWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, result)
}

func (h *APIHandlers) AdvanceWorkflow(c fiber.Ctx) error {
	var req models.AdvanceRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.applications.AdvanceWorkflow(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return ok(c, fiber.StatusOK, result)
}
