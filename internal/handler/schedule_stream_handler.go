package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/middleware"
	"github.com/noah-isme/hwplan-api/internal/observability"
	"github.com/noah-isme/hwplan-api/internal/service"
)

const (
	streamPingInterval = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// ScheduleStreamHandler pushes the caller's schedule events over a websocket.
type ScheduleStreamHandler struct {
	events service.ScheduleEvents
	logger zerolog.Logger
}

// NewScheduleStreamHandler constructs the handler.
func NewScheduleStreamHandler(events service.ScheduleEvents, logger zerolog.Logger) *ScheduleStreamHandler {
	return &ScheduleStreamHandler{
		events: events,
		logger: logger.With().Str("component", "schedule_stream_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the router group.
func (h *ScheduleStreamHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(middleware.CorrelationLocalKey, middleware.GetCorrelationID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ScheduleStreamHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.UserIDKey).(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	logger := h.logger.With().Uint("user_id", userID).Interface("correlation_id", conn.Locals(middleware.CorrelationLocalKey)).Logger()

	events, cancel := h.events.Subscribe(userID)
	defer cancel()

	observability.ScheduleStreamsActive().Inc()
	defer observability.ScheduleStreamsActive().Dec()

	logger.Info().Msg("schedule stream connected")
	defer logger.Info().Msg("schedule stream disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, dto.ScheduleEvent{Type: dto.ScheduleEventStreamReady, OwnerID: userID, Complete: true, OccurredAt: time.Now().UTC()}); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, event); err != nil {
				logger.Debug().Err(err).Msg("schedule stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *ScheduleStreamHandler) write(conn *websocket.Conn, event dto.ScheduleEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}
