package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/middleware"
	"github.com/noah-isme/hwplan-api/internal/service"
	"github.com/noah-isme/hwplan-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseIntParam(c *fiber.Ctx, name string) (int, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return parsed, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals(middleware.UserIDKey); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", utils.ValidationDetails(err))
	case errors.Is(err, service.ErrInvalidScheduleRequest),
		errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, service.ErrInvalidCalendarRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "item not found")
	case errors.Is(err, service.ErrOwnerRequired):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		requestLogger(logger, c).Warn().Err(err).Msg("request cancelled")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "request cancelled")
	case service.IsPersistenceError(err):
		requestLogger(logger, c).Error().Err(err).Msg("persistence failure")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to persist schedule")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
