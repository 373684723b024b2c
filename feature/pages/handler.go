package pages

import (
	"content-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves category activity over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the pages routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/pages")
	group.Get("/activity", h.HandleGetActivity)
}

// HandleGetActivity returns the activity of every managed category with its desired visibility.
func (h *Handler) HandleGetActivity(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	activity, err := h.service.Activity(c.UserContext())
	if err != nil {
		l.Error("Activity computation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	type entry struct {
		Activity
		Visible bool `json:"visible"`
	}
	out := make([]entry, 0, len(activity))
	for _, a := range activity {
		out = append(out, entry{Activity: a, Visible: a.Visible()})
	}

	return c.JSON(fiber.Map{
		"inactive_days": h.service.cfg.threshold(),
		"categories":    out,
	})
}
