package status

import (
	"errors"

	"content-sync/core/journal"
	"content-sync/core/logger"
	"content-sync/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for run status.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/health", h.HandleHealth)
	app.Get("/runs", h.HandleListRuns)

	group := app.Group("/runs")
	group.Get("/:id", h.HandleGetRun)
	group.Get("/:id/report", h.HandleGetReport)
}

// HandleHealth reports journal health. A degraded journal answers 503.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	health := h.service.Health(c.UserContext())
	if health.Status != "ok" {
		logger.WithRayID(h.service.logger, c).Warn("Health check degraded",
			zap.String("journal", health.Journal),
			zap.Strings("missing_columns", health.MissingColumns),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(health)
	}
	return c.JSON(health)
}

// HandleListRuns returns recent runs, newest first.
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", journal.DefaultLimit)
	if limit <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be positive",
		})
	}

	runs, err := h.service.Runs(c.UserContext(), limit)
	if err != nil {
		return h.fail(c, "Listing runs failed", err)
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// HandleGetRun returns one run with its failed items.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	run, err := h.service.Run(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Loading run failed", err)
	}
	return c.JSON(run)
}

// HandleGetReport returns the archived report of a run.
func (h *Handler) HandleGetReport(c *fiber.Ctx) error {
	report, err := h.service.Report(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, "Loading report failed", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(report)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, journal.ErrRunNotFound),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, ErrReportNotArchived):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrJournalDisabled), errors.Is(err, ErrArchiveDisabled):
		status = fiber.StatusNotImplemented
	default:
		logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
