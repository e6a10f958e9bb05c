package observability

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CorrelationHeader names the header that carries a request's correlation id.
const CorrelationHeader = "X-Correlation-ID"

// maxCorrelationLength bounds client supplied ids before they reach logs,
// schedule run metadata and websocket events.
const maxCorrelationLength = 64

type correlationKey struct{}

// MetricsHandler exposes the scheduler's Prometheus collectors via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

// NormalizeCorrelationID trims the id and caps its length. It returns "" for
// blank input.
func NormalizeCorrelationID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxCorrelationLength {
		id = id[:maxCorrelationLength]
	}
	return id
}

// WithCorrelationID binds id to ctx so scheduling passes started by a request
// can be traced back to it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = NormalizeCorrelationID(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id bound to ctx, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
