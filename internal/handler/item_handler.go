package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/service"
	"github.com/noah-isme/hwplan-api/internal/utils"
)

// ItemHandler wires item HTTP routes. Every write reschedules the item.
type ItemHandler struct {
	service service.ItemService
	logger  zerolog.Logger
}

// NewItemHandler constructs the handler.
func NewItemHandler(service service.ItemService, logger zerolog.Logger) *ItemHandler {
	return &ItemHandler{
		service: service,
		logger:  logger.With().Str("component", "item_handler").Logger(),
	}
}

// Register attaches item endpoints to the router group. writeGuards run
// before every route that triggers scheduling.
func (h *ItemHandler) Register(router fiber.Router, writeGuards ...fiber.Handler) {
	guarded := func(handler fiber.Handler) []fiber.Handler {
		chain := make([]fiber.Handler, 0, len(writeGuards)+1)
		chain = append(chain, writeGuards...)
		return append(chain, handler)
	}

	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", guarded(h.create)...)
	router.Patch("/:id", guarded(h.update)...)
	router.Post("/:id/reschedule", guarded(h.reschedule)...)
	router.Delete("/:id", h.delete)
}

func (h *ItemHandler) list(c *fiber.Ctx) error {
	var query dto.ItemListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.List(withRequestContext(c), userIDFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, response.Items, "items retrieved", response.Pagination)
}

func (h *ItemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.service.Get(withRequestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "item retrieved", item)
}

func (h *ItemHandler) create(c *fiber.Ctx) error {
	var payload dto.ItemCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, scheduleMessage("item scheduled", response.Schedule), response)
}

func (h *ItemHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ItemUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Update(withRequestContext(c), userIDFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, scheduleMessage("item updated", response.Schedule), response)
}

func (h *ItemHandler) reschedule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Reschedule(withRequestContext(c), userIDFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, scheduleMessage("item rescheduled", response.Schedule), response)
}

func (h *ItemHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(withRequestContext(c), userIDFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "item deleted", fiber.Map{"id": id})
}

// scheduleMessage names the shortfall when the deadline was reached first.
func scheduleMessage(success string, summary dto.ScheduleSummary) string {
	if summary.Complete {
		return success
	}
	return fmt.Sprintf("deadline reached: %d of %d minutes could not be scheduled",
		summary.RemainingMinutes, summary.RequestedMinutes)
}
