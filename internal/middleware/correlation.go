package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/hwplan-api/internal/observability"
)

// CorrelationLocalKey stores the request's correlation id in fiber locals.
const CorrelationLocalKey = "correlation_id"

// CorrelationID tags each request with an id taken from X-Correlation-ID or
// X-Request-ID, or a fresh UUID. The id is echoed back and bound to the user
// context, where the scheduler records it on runs and events.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := observability.NormalizeCorrelationID(c.Get(observability.CorrelationHeader))
		if id == "" {
			id = observability.NormalizeCorrelationID(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(CorrelationLocalKey, id)
		c.Set(observability.CorrelationHeader, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(CorrelationLocalKey).(string); ok && id != "" {
		return id
	}
	return observability.CorrelationID(c.UserContext())
}

// ContextWithCorrelation attaches the correlation id to ctx.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	return observability.WithCorrelationID(ctx, correlationID)
}
