package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/observability"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

// ScheduleResult reports what a scheduling pass committed. Remaining > 0
// means the deadline was reached first; it is not an error.
type ScheduleResult struct {
	Chunks           []models.Chunk
	ScheduledMinutes int
	Remaining        int
}

// Complete reports whether the whole need was placed.
func (r ScheduleResult) Complete() bool {
	return r.Remaining <= 0
}

// ScheduleService places an item's chunks on the owner's calendar.
//
// Passes for the same owner are serialised; each day's busy set is read
// while the owner's claim is held.
type ScheduleService interface {
	ScheduleItem(ctx context.Context, item models.Item, policy scheduler.Policy) (ScheduleResult, error)
	Reschedule(ctx context.Context, item models.Item, policy scheduler.Policy) (ScheduleResult, error)
	Clear(ctx context.Context, item models.Item) (int64, error)
	WithOwnerClaim(ctx context.Context, ownerID uint, fn func(context.Context) error) error
}

type scheduleService struct {
	chunks   repository.ChunkRepository
	runs     repository.ScheduleRunRepository
	events   EventPublisher
	location *time.Location
	locks    *ownerLocks
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewScheduleService constructs the scheduling service. events may be nil.
func NewScheduleService(chunks repository.ChunkRepository, runs repository.ScheduleRunRepository, events EventPublisher, location *time.Location, logger zerolog.Logger) ScheduleService {
	if location == nil {
		location = time.UTC
	}

	return &scheduleService{
		chunks:   chunks,
		runs:     runs,
		events:   events,
		location: location,
		locks:    newOwnerLocks(),
		logger:   logger.With().Str("component", "schedule_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/hwplan-api/internal/service/schedule"),
		now:      time.Now,
	}
}

func (s *scheduleService) ScheduleItem(ctx context.Context, item models.Item, policy scheduler.Policy) (ScheduleResult, error) {
	return s.run(ctx, "schedule.item", item, policy, false)
}

// Reschedule drops every chunk of the item and schedules it again from scratch.
func (s *scheduleService) Reschedule(ctx context.Context, item models.Item, policy scheduler.Policy) (ScheduleResult, error) {
	return s.run(ctx, "schedule.reschedule", item, policy, true)
}

// Clear removes the item's chunks under the owner's claim.
func (s *scheduleService) Clear(ctx context.Context, item models.Item) (int64, error) {
	release, err := s.locks.acquire(ctx, item.OwnerID)
	if err != nil {
		return 0, err
	}
	defer release()

	deleted, err := s.chunks.DeleteByItem(ctx, item.ID)
	if err != nil {
		return 0, persistenceError("delete item chunks", err)
	}
	return deleted, nil
}

// WithOwnerClaim runs fn while holding the owner's claim, so no scheduling
// pass for that owner runs at the same time.
func (s *scheduleService) WithOwnerClaim(ctx context.Context, ownerID uint, fn func(context.Context) error) error {
	release, err := s.locks.acquire(ctx, ownerID)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

func (s *scheduleService) run(ctx context.Context, spanName string, item models.Item, policy scheduler.Policy, clear bool) (ScheduleResult, error) {
	started := time.Now()
	defer func() {
		observability.ScheduleDuration().Observe(time.Since(started).Seconds())
	}()

	attrs := []attribute.KeyValue{
		attribute.Int64("item.id", int64(item.ID)),
		attribute.Int64("owner.id", int64(item.OwnerID)),
		attribute.Int("item.total_minutes", item.TotalTimeNeeded),
		attribute.Int("item.max_chunk_minutes", item.MaxChunkDuration),
	}
	if correlation := observability.CorrelationID(ctx); correlation != "" {
		attrs = append(attrs, attribute.String("correlation.id", correlation))
	}
	spanCtx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	result := ScheduleResult{Remaining: item.TotalTimeNeeded}
	req := requestFor(item)

	if err := validateSchedule(req, policy, s.location); err != nil {
		span.SetStatus(codes.Error, "invalid_request")
		observability.ScheduleRuns().WithLabelValues("invalid").Inc()
		return result, err
	}

	release, err := s.locks.acquire(spanCtx, item.OwnerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "owner_claim_failed")
		return result, err
	}
	defer release()

	if clear {
		deleted, err := s.chunks.DeleteByItem(spanCtx, item.ID)
		if err != nil {
			err = persistenceError("delete item chunks", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete_chunks_failed")
			observability.ScheduleRuns().WithLabelValues(models.ScheduleOutcomeFailed).Inc()
			return result, err
		}
		span.SetAttributes(attribute.Int64("schedule.chunks_deleted", deleted))
	}

	load := func(ctx context.Context, day time.Time) ([]scheduler.Interval, error) {
		busy, err := s.chunks.ListBusy(ctx, item.OwnerID, day, scheduler.NextDay(day))
		if err != nil {
			return nil, persistenceError("load busy chunks", err)
		}
		intervals := make([]scheduler.Interval, 0, len(busy))
		for _, chunk := range busy {
			intervals = append(intervals, scheduler.Interval{Start: chunk.StartTime, End: chunk.EndTime})
		}
		return intervals, nil
	}

	commit := func(ctx context.Context, interval scheduler.Interval) error {
		chunk := models.Chunk{
			ItemID:    item.ID,
			OwnerID:   item.OwnerID,
			StartTime: interval.Start,
			EndTime:   interval.End,
		}
		if err := s.chunks.Create(ctx, &chunk); err != nil {
			return persistenceError("save chunk", err)
		}
		result.Chunks = append(result.Chunks, chunk)
		return nil
	}

	outcome, walkErr := scheduler.Walk(spanCtx, req, policy, s.location, load, commit)
	result.ScheduledMinutes = outcome.Scheduled
	result.Remaining = outcome.Remaining

	span.SetAttributes(
		attribute.Int("schedule.chunks_placed", len(result.Chunks)),
		attribute.Int("schedule.remaining_minutes", result.Remaining),
	)
	observability.ChunksPlaced().Add(float64(len(result.Chunks)))

	label := models.ScheduleOutcomeComplete
	switch {
	case walkErr != nil:
		label = models.ScheduleOutcomeFailed
		span.RecordError(walkErr)
		span.SetStatus(codes.Error, "schedule_failed")
		s.logger.Error().Err(walkErr).
			Uint("item_id", item.ID).
			Uint("owner_id", item.OwnerID).
			Int("chunks_kept", len(result.Chunks)).
			Msg("scheduling pass aborted")
	case !result.Complete():
		label = models.ScheduleOutcomePartial
		observability.ScheduleShortfall().Observe(float64(result.Remaining))
		s.logger.Info().
			Uint("item_id", item.ID).
			Uint("owner_id", item.OwnerID).
			Int("remaining_minutes", result.Remaining).
			Msg("deadline reached before the item could be fully scheduled")
	default:
		s.logger.Debug().
			Uint("item_id", item.ID).
			Int("chunks", len(result.Chunks)).
			Msg("item fully scheduled")
	}
	observability.ScheduleRuns().WithLabelValues(label).Inc()

	s.recordRun(context.WithoutCancel(spanCtx), item, policy, req, result, label)

	if walkErr != nil {
		return result, walkErr
	}

	s.publish(spanCtx, item, result)
	return result, nil
}

func (s *scheduleService) recordRun(ctx context.Context, item models.Item, policy scheduler.Policy, req scheduler.Request, result ScheduleResult, outcome string) {
	if s.runs == nil {
		return
	}

	run := models.ScheduleRun{
		ItemID:           item.ID,
		OwnerID:          item.OwnerID,
		Outcome:          outcome,
		RequestedMinutes: item.TotalTimeNeeded,
		ScheduledMinutes: result.ScheduledMinutes,
		RemainingMinutes: result.Remaining,
		ChunkCount:       len(result.Chunks),
		Metadata: datatypes.JSONMap{
			"break_time":         policy.BreakTime,
			"min_chunk_duration": policy.MinChunkDuration,
			"day_end":            policy.DayEnd,
			"max_chunk_duration": item.MaxChunkDuration,
			"days":               len(req.Days(s.location)),
		},
	}
	if correlation := observability.CorrelationID(ctx); correlation != "" {
		run.Metadata["correlation_id"] = correlation
	}
	if err := s.runs.Create(ctx, &run); err != nil {
		s.logger.Warn().Err(err).Uint("item_id", item.ID).Msg("failed to record schedule run")
	}
}

func (s *scheduleService) publish(ctx context.Context, item models.Item, result ScheduleResult) {
	if s.events == nil {
		return
	}

	s.events.Publish(ctx, dto.ScheduleEvent{
		Type:             dto.ScheduleEventItemScheduled,
		OwnerID:          item.OwnerID,
		ItemID:           item.ID,
		ItemName:         item.Name,
		ScheduledMinutes: result.ScheduledMinutes,
		RemainingMinutes: result.Remaining,
		Complete:         result.Complete(),
		OccurredAt:       s.now().UTC(),
		CorrelationID:    observability.CorrelationID(ctx),
	})
}

func requestFor(item models.Item) scheduler.Request {
	return scheduler.Request{
		StartDate:       item.StartDay(),
		Due:             item.Due,
		TotalMinutes:    item.TotalTimeNeeded,
		MaxChunkMinutes: item.MaxChunkDuration,
	}
}

func validateSchedule(req scheduler.Request, policy scheduler.Policy, loc *time.Location) error {
	if err := req.Validate(loc); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	return nil
}

// IsPersistenceError reports whether err carries a storage failure.
func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
