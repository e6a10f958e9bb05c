package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/service"
	"github.com/noah-isme/hwplan-api/internal/utils"
)

// CalendarHandler serves month and day views of the caller's chunks.
type CalendarHandler struct {
	service service.CalendarService
	logger  zerolog.Logger
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service service.CalendarService, logger zerolog.Logger) *CalendarHandler {
	return &CalendarHandler{
		service: service,
		logger:  logger.With().Str("component", "calendar_handler").Logger(),
	}
}

// Register attaches calendar endpoints to the router group.
func (h *CalendarHandler) Register(router fiber.Router) {
	router.Get("/:year/:month", h.month)
	router.Get("/:year/:month/:day", h.day)
}

func (h *CalendarHandler) month(c *fiber.Ctx) error {
	year, err := parseIntParam(c, "year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Month(withRequestContext(c), userIDFromContext(c), year, month)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "calendar month retrieved", response)
}

func (h *CalendarHandler) day(c *fiber.Ctx) error {
	year, err := parseIntParam(c, "year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	day, err := parseIntParam(c, "day")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Day(withRequestContext(c), userIDFromContext(c), year, month, day)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "calendar day retrieved", response)
}
