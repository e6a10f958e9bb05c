package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/dto"
)

const scheduleEventBufferSize = 16

// EventPublisher receives schedule events after a pass completes.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.ScheduleEvent)
}

// ScheduleEvents fans schedule events out to local subscribers and, when
// configured, to other API nodes through Redis and NATS.
type ScheduleEvents interface {
	EventPublisher
	Subscribe(ownerID uint) (<-chan dto.ScheduleEvent, func())
	Start(ctx context.Context)
}

type scheduleEvents struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *scheduleBroker
	nodeID       string
}

type scheduleEnvelope struct {
	Source string            `json:"source"`
	Event  dto.ScheduleEvent `json:"event"`
	SentAt time.Time         `json:"sent_at"`
}

type scheduleBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.ScheduleEvent]struct{}
}

// NewScheduleEvents constructs the event fan-out. Nil clients disable that transport.
func NewScheduleEvents(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ScheduleEvents {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":schedule"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".schedule"
	}

	return &scheduleEvents{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "schedule_events").Logger(),
		broker: &scheduleBroker{
			subscribers: make(map[uint]map[chan dto.ScheduleEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *scheduleEvents) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		pubsub := s.redis.Subscribe(ctx, s.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to subscribe to redis schedule channel")
			_ = pubsub.Close()
		} else {
			go s.consumeRedis(ctx, pubsub)
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

func (s *scheduleEvents) Publish(ctx context.Context, event dto.ScheduleEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	s.broker.broadcast(event)

	if err := s.forward(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("owner_id", event.OwnerID).Msg("failed to forward schedule event")
	}
}

func (s *scheduleEvents) Subscribe(ownerID uint) (<-chan dto.ScheduleEvent, func()) {
	channel := make(chan dto.ScheduleEvent, scheduleEventBufferSize)
	s.broker.subscribe(ownerID, channel)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { s.broker.unsubscribe(ownerID, channel) })
	}
	return channel, cleanup
}

func (s *scheduleEvents) forward(ctx context.Context, event dto.ScheduleEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(scheduleEnvelope{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	var errs []error
	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *scheduleEvents) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("schedule redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *scheduleEvents) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats schedule subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain schedule nats subscription")
		}
	}()
}

func (s *scheduleEvents) handleEnvelope(payload []byte) {
	var envelope scheduleEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid schedule event payload")
		return
	}

	// Local subscribers already received events published by this node.
	if envelope.Source == s.nodeID {
		return
	}

	s.broker.broadcast(envelope.Event)
}

func (b *scheduleBroker) subscribe(ownerID uint, ch chan dto.ScheduleEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[ownerID]; !exists {
		b.subscribers[ownerID] = make(map[chan dto.ScheduleEvent]struct{})
	}
	b.subscribers[ownerID][ch] = struct{}{}
}

func (b *scheduleBroker) unsubscribe(ownerID uint, ch chan dto.ScheduleEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[ownerID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, ownerID)
		}
	}
}

func (b *scheduleBroker) broadcast(event dto.ScheduleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.OwnerID] {
		select {
		case ch <- event:
		default:
		}
	}
}
