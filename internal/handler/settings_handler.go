package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/service"
	"github.com/noah-isme/hwplan-api/internal/utils"
)

// SettingsHandler exposes the caller's scheduling policy.
type SettingsHandler struct {
	service service.PolicyService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service service.PolicyService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches settings endpoints to the router group.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/schedule", h.get)
	router.Put("/schedule", h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	policy, err := h.service.Get(withRequestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "schedule settings retrieved", policy)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var payload dto.PolicyUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	policy, err := h.service.Update(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "schedule settings updated", policy)
}
